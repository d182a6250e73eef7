package facebook

import (
	"context"
	"fmt"

	"github.com/wedstudio/pagefeed/internal/domain"
)

// Client talks to the Facebook Graph API.
type Client interface {
	// FetchPosts returns up to the newest 50 posts of a page. A non-2xx
	// response is returned as *APIError.
	FetchPosts(ctx context.Context, pageID, accessToken string) ([]domain.RawPost, error)

	// FetchAttachments returns the attachments of a single post. It is
	// best-effort: a non-2xx response yields an empty list and a nil
	// error; only transport failures produce an error, and callers are
	// expected to degrade to "no attachments" on it.
	FetchAttachments(ctx context.Context, postID, accessToken string) ([]domain.Attachment, error)

	// ExchangeToken swaps a short-lived user token for a long-lived one.
	ExchangeToken(ctx context.Context, shortLivedToken string) (string, error)
}

// APIError is a non-2xx answer from the Graph API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("facebook api error: %d - %s", e.Status, e.Message)
}
