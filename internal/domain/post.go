package domain

// RawPost is a single post as returned by the Graph API. Most fields are
// optional: photo and video posts usually carry media directly, link and
// shared posts hide it inside attachments, and plain status updates have
// none at all.
type RawPost struct {
	ID           string       `json:"id"`
	Type         string       `json:"type,omitempty"`
	MediaURL     string       `json:"media_url,omitempty"`
	ThumbnailURL string       `json:"thumbnail_url,omitempty"`
	Caption      string       `json:"caption,omitempty"`
	Message      string       `json:"message,omitempty"`
	CreatedTime  string       `json:"created_time"`
	SourceLink   string       `json:"source_link,omitempty"`
	PermalinkURL string       `json:"permalink_url,omitempty"`
	Attachments  *Attachments `json:"attachments,omitempty"`
}

// Post types the Graph API reports that we care about.
const (
	PostTypePhoto  = "photo"
	PostTypeVideo  = "video"
	PostTypeStatus = "status"
)

type Attachments struct {
	Data []Attachment `json:"data"`
}

// Attachment carries the media of a post that has no direct media URL.
type Attachment struct {
	Media  AttachmentMedia   `json:"media"`
	Type   string            `json:"type"`
	Target *AttachmentTarget `json:"target,omitempty"`
}

type AttachmentMedia struct {
	Image *AttachmentImage `json:"image,omitempty"`
	Video *AttachmentVideo `json:"video,omitempty"`
}

type AttachmentImage struct {
	Src    string `json:"src"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// GetSrc is nil-safe: an absent image yields an empty source.
func (i *AttachmentImage) GetSrc() string {
	if i == nil {
		return ""
	}
	return i.Src
}

type AttachmentVideo struct {
	Src string `json:"src"`
}

type AttachmentTarget struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SanitizedPost is the stable, frontend-safe shape of a post. MediaURL is
// always set and Type is always "photo" or "video"; posts that cannot
// satisfy that are dropped during normalization instead of being emitted
// as a third kind.
type SanitizedPost struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Caption      string `json:"caption,omitempty"`
	CreatedTime  string `json:"created_time"`
	SourceLink   string `json:"source_link"`
}
