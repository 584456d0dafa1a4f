package entry

import (
	"time"
)

type BlockKind string

const (
	BlockText    BlockKind = "text"
	BlockImage   BlockKind = "image"
	BlockVideo   BlockKind = "video"
	BlockHeading BlockKind = "heading"
	BlockDivider BlockKind = "divider"
)

type CoverType string

const (
	CoverImage CoverType = "image"
	CoverVideo CoverType = "video"
)

// Block is one unit of an entry's body. Which fields are set depends on Kind:
// text and heading use Content, image uses Filename and URL, video also uses IsCover.
// Filename is empty when the media could not be downloaded.
type Block struct {
	Kind     BlockKind `json:"type" bson:"type"`
	Content  string    `json:"content,omitempty" bson:"content,omitempty"`
	Filename string    `json:"filename,omitempty" bson:"filename,omitempty"`
	URL      string    `json:"url,omitempty" bson:"url,omitempty"`
	IsCover  bool      `json:"is_cover,omitempty" bson:"isCover,omitempty"`
}

func TextBlock(content string) Block {
	return Block{Kind: BlockText, Content: content}
}

func HeadingBlock(content string) Block {
	return Block{Kind: BlockHeading, Content: content}
}

func DividerBlock() Block {
	return Block{Kind: BlockDivider}
}

func ImageBlock(filename, url string) Block {
	return Block{Kind: BlockImage, Filename: filename, URL: url}
}

func VideoBlock(filename, url string, cover bool) Block {
	return Block{Kind: BlockVideo, Filename: filename, URL: url, IsCover: cover}
}

type Entry struct {
	ID             string    `json:"id" bson:"diaryId"`
	Date           string    `json:"date" bson:"date"`
	Timestamp      time.Time `json:"timestamp" bson:"timestamp"`
	Title          string    `json:"title" bson:"title"`
	OriginalText   string    `json:"original_text" bson:"originalText"`
	TranslatedText string    `json:"translated_text" bson:"translatedText"`
	CoverFilename  string    `json:"cover_filename,omitempty" bson:"coverFilename,omitempty"`
	CoverType      CoverType `json:"cover_type" bson:"coverType"`
	CoverURL       string    `json:"image_url_original,omitempty" bson:"coverUrl,omitempty"`
	Blocks         []Block   `json:"content_blocks" bson:"contentBlocks"`

	Published   bool       `json:"published" bson:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty" bson:"publishedAt,omitempty"`
	PageURL     string     `json:"page_url,omitempty" bson:"pageUrl,omitempty"`
}

// FirstImage returns the first image block, used as the page image when the cover is a video.
func (e *Entry) FirstImage() (Block, bool) {
	for _, b := range e.Blocks {
		if b.Kind == BlockImage {
			return b, true
		}
	}
	return Block{}, false
}

// MarkPublished records a successful upload.
func (e *Entry) MarkPublished(at time.Time, pageURL string) {
	e.Published = true
	e.PublishedAt = &at
	e.PageURL = pageURL
}
