package services

import (
	"context"
	"fmt"
	"log"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
	"yatube.dev/yatube/metrics"
	"yatube.dev/yatube/models"
	"yatube.dev/yatube/repository"
)

// Notifier tells authors about activity on their account.
type Notifier interface {
	NewComment(ctx context.Context, post *models.PostWithAuthor, commenter *models.User, text string)
	NewFollower(ctx context.Context, follower, author *models.User)
}

type noopNotifier struct{}

func (noopNotifier) NewComment(context.Context, *models.PostWithAuthor, *models.User, string) {}
func (noopNotifier) NewFollower(context.Context, *models.User, *models.User)                  {}

func NoopNotifier() Notifier { return noopNotifier{} }

type multicaster interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMNotifier pushes through Firebase Cloud Messaging to every device
// token registered for the recipient.
type FCMNotifier struct {
	client multicaster
	store  repository.Store
	// isUnregistered picks the send errors whose token should be dropped.
	isUnregistered func(error) bool
}

func NewFCMNotifier(ctx context.Context, credentialsPath string, store repository.Store) (*FCMNotifier, error) {
	log.Printf("[FCM] Initializing Firebase with credentials: %s", credentialsPath)

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log.Println("[FCM] Firebase Messaging client initialized successfully")
	return &FCMNotifier{client: client, store: store, isUnregistered: messaging.IsUnregistered}, nil
}

func (n *FCMNotifier) NewComment(ctx context.Context, post *models.PostWithAuthor, commenter *models.User, text string) {
	if post.AuthorID == commenter.ID {
		return
	}
	n.sendToUser(ctx, post.AuthorID,
		fmt.Sprintf("%s commented on your post", commenter.Name()),
		preview(text),
		map[string]string{
			"type":         "post_comment",
			"post_id":      strconv.Itoa(post.ID),
			"commenter_id": strconv.Itoa(commenter.ID),
		})
}

func (n *FCMNotifier) NewFollower(ctx context.Context, follower, author *models.User) {
	n.sendToUser(ctx, author.ID,
		"New Follower",
		follower.Name()+" started following you!",
		map[string]string{
			"type":        "new_follower",
			"follower_id": strconv.Itoa(follower.ID),
		})
}

func (n *FCMNotifier) sendToUser(ctx context.Context, userID int, title, body string, data map[string]string) {
	tokens, err := n.store.ListDeviceTokens(ctx, userID)
	if err != nil {
		log.Printf("[FCM][ERROR] Fetching tokens for user %d: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}
	success, failure, err := n.sendMulticast(ctx, tokens, title, body, data)
	if err != nil {
		metrics.Notifications.WithLabelValues("error").Inc()
		return
	}
	metrics.Notifications.WithLabelValues("sent").Add(float64(success))
	metrics.Notifications.WithLabelValues("failed").Add(float64(failure))
}

// sendMulticast delivers one message to many tokens and deletes tokens that
// FCM reports as unregistered.
func (n *FCMNotifier) sendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (int, int, error) {
	log.Printf("[FCM] Sending multicast | tokens=%d title=%q", len(tokens), title)

	response, err := n.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:   data,
		Tokens: tokens,
	})
	if err != nil {
		log.Printf("[FCM][ERROR] Multicast send failed entirely: %v", err)
		return 0, 0, err
	}

	log.Printf("[FCM] Multicast result | success=%d failure=%d", response.SuccessCount, response.FailureCount)

	unregistered := n.isUnregistered
	if unregistered == nil {
		unregistered = messaging.IsUnregistered
	}
	for i, resp := range response.Responses {
		if resp.Success {
			continue
		}
		token := tokens[i]
		log.Printf("[FCM][TOKEN ERROR] token=%s... error=%v", token[:min(10, len(token))], resp.Error)

		if unregistered(resp.Error) {
			if err := n.store.DeleteDeviceToken(ctx, token); err != nil {
				log.Printf("[FCM][ERROR] Failed to delete token: %v", err)
			}
		}
	}
	return response.SuccessCount, response.FailureCount, nil
}

func preview(text string) string {
	r := []rune(text)
	if len(r) > 100 {
		return string(r[:97]) + "..."
	}
	return text
}
