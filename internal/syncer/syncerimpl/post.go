package syncerimpl

import (
	"context"

	"github.com/wedstudio/pagefeed/internal/domain"
)

// batchSize bounds how many attachment lookups run at once.
const batchSize = 5

// FetchAndNormalize pulls the raw post list once and normalizes it in
// windows of batchSize. Posts inside a window are normalized
// concurrently, windows run one after another, and the output keeps the
// order of the raw list.
func (s *SyncerImpl) FetchAndNormalize(ctx context.Context) ([]domain.SanitizedPost, error) {
	pageID, accessToken, err := s.credentials()
	if err != nil {
		return nil, err
	}

	rawPosts, err := s.Facebook.FetchPosts(ctx, pageID, accessToken)
	if err != nil {
		return nil, err
	}

	normalized := make([]domain.SanitizedPost, 0, len(rawPosts))

	for start := 0; start < len(rawPosts); start += batchSize {
		end := start + batchSize
		if end > len(rawPosts) {
			end = len(rawPosts)
		}
		window := rawPosts[start:end]

		results := make([]*domain.SanitizedPost, len(window))
		done := make(chan struct{})

		for i, raw := range window {
			go func(i int, raw domain.RawPost) {
				results[i] = s.NormalizePost(ctx, raw, accessToken)
				done <- struct{}{}
			}(i, raw)
		}
		for range window {
			<-done
		}

		for _, post := range results {
			if post != nil {
				normalized = append(normalized, *post)
			}
		}
	}

	return normalized, nil
}

// NormalizePost converts one raw post into the sanitized shape, or nil
// when the post has no displayable media. A failed attachment lookup is
// logged and treated as "no attachments" so one bad post cannot abort a
// whole batch.
func (s *SyncerImpl) NormalizePost(ctx context.Context, post domain.RawPost, accessToken string) *domain.SanitizedPost {
	// Plain status updates carry nothing to display.
	if post.Type == domain.PostTypeStatus && post.MediaURL == "" {
		return nil
	}

	mediaURL := post.MediaURL
	thumbnailURL := post.ThumbnailURL
	postType := domain.PostTypePhoto
	if post.Type == domain.PostTypeVideo {
		postType = domain.PostTypeVideo
	}

	if mediaURL == "" && post.ID != "" {
		attachments, err := s.Facebook.FetchAttachments(ctx, post.ID, accessToken)
		if err != nil {
			s.Logger.Warn("Attachment lookup failed, continuing without media enrichment",
				"post_id", post.ID, "error", err)
			attachments = nil
		}

		// Single-media-per-post policy: only the first attachment counts.
		if len(attachments) > 0 {
			attachment := attachments[0]
			switch {
			case attachment.Media.Image != nil:
				mediaURL = attachment.Media.Image.Src
				postType = domain.PostTypePhoto
			case attachment.Media.Video != nil:
				mediaURL = attachment.Media.Video.Src
				postType = domain.PostTypeVideo
				// The poster frame, when the API sends one, replaces
				// whatever thumbnail the raw post claimed.
				thumbnailURL = attachment.Media.Image.GetSrc()
			}
		}
	}

	if mediaURL == "" {
		return nil
	}

	caption := post.Caption
	if caption == "" {
		caption = post.Message
	}

	sourceLink := post.PermalinkURL
	if sourceLink == "" {
		sourceLink = post.SourceLink
	}
	if sourceLink == "" {
		sourceLink = "https://facebook.com/" + post.ID
	}

	return &domain.SanitizedPost{
		ID:           post.ID,
		Type:         postType,
		MediaURL:     mediaURL,
		ThumbnailURL: thumbnailURL,
		Caption:      caption,
		CreatedTime:  post.CreatedTime,
		SourceLink:   sourceLink,
	}
}
