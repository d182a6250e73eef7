package graphimpl

import (
	"context"
	"net/url"

	"github.com/wedstudio/pagefeed/internal/domain"
	"github.com/wedstudio/pagefeed/internal/facebook"
	"github.com/wedstudio/pagefeed/pkg/errors"
	"github.com/wedstudio/pagefeed/pkg/retry"
)

// postFields is the field selection for the page feed request. Keeping
// attachments in the projection spares one round trip per media post.
const postFields = "id,message,created_time,permalink_url,attachments{media,type,target}"

const postLimit = "50"

type postsResponse struct {
	Data   []domain.RawPost `json:"data"`
	Paging *struct {
		Next     string `json:"next,omitempty"`
		Previous string `json:"previous,omitempty"`
	} `json:"paging,omitempty"`
}

type attachmentsResponse struct {
	Data []domain.Attachment `json:"data"`
}

// FetchPosts returns up to the newest 50 posts of the page. Transient
// transport failures are retried with backoff; an HTTP-status error is
// permanent and aborts the retry loop immediately.
func (g *GraphAPI) FetchPosts(ctx context.Context, pageID, accessToken string) ([]domain.RawPost, error) {
	q := url.Values{}
	q.Set("fields", postFields)
	q.Set("access_token", accessToken)
	q.Set("limit", postLimit)
	u := g.baseURL + "/" + url.PathEscape(pageID) + "/posts?" + q.Encode()

	var out postsResponse
	operation := func() error {
		out = postsResponse{}
		if err := g.doGet(ctx, u, &out); err != nil {
			var apiErr *facebook.APIError
			if errors.As(err, &apiErr) {
				return retry.Permanent(err)
			}
			return err
		}
		return nil
	}

	if err := retry.Do(ctx, g.logger, "FetchPosts", operation, retry.DefaultConfig()); err != nil {
		return nil, err
	}

	return out.Data, nil
}

// FetchAttachments returns the attachments of one post. Attachments are
// an enrichment, not a hard dependency: a non-2xx answer yields an empty
// list, only transport failures surface as errors.
func (g *GraphAPI) FetchAttachments(ctx context.Context, postID, accessToken string) ([]domain.Attachment, error) {
	q := url.Values{}
	q.Set("fields", "media,type,target")
	q.Set("access_token", accessToken)
	u := g.baseURL + "/" + url.PathEscape(postID) + "/attachments?" + q.Encode()

	var out attachmentsResponse
	if err := g.doGet(ctx, u, &out); err != nil {
		var apiErr *facebook.APIError
		if errors.As(err, &apiErr) {
			g.logger.Debug("Attachments request rejected, treating as empty",
				"post_id", postID, "status", apiErr.Status)
			return []domain.Attachment{}, nil
		}
		return nil, err
	}

	return out.Data, nil
}
