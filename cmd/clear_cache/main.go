package main

import (
	"context"
	"log"
	"time"

	"yatube.dev/yatube/config"
	"yatube.dev/yatube/services"
)

// clear_cache drops every cached index page. Index pages are not
// invalidated on writes, so this is run after moderation or on deploy.
func main() {
	cfg := config.Load()
	if cfg.RedisAddr == "" {
		log.Fatal("REDIS_ADDR not set; send SIGHUP to the server to clear its in-memory cache")
	}

	cache := services.NewRedisPageCache(cfg.RedisAddr)
	defer cache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Println("⏰ Running index cache clear job")
	if err := cache.Clear(ctx, services.IndexCachePrefix); err != nil {
		log.Fatal("ClearCache: ", err)
	}
	log.Println("✅ Index cache clear job finished")
}
