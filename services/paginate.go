package services

import "strconv"

// pageBounds resolves a requested page number the way the listing pages
// expect: anything unparsable or below one is the first page, anything past
// the end is the last page, and an empty listing still has one page.
func pageBounds(count, size int, requested string) (number, numPages int) {
	numPages = (count + size - 1) / size
	if numPages < 1 {
		numPages = 1
	}
	number, err := strconv.Atoi(requested)
	if err != nil || number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	return number, numPages
}
