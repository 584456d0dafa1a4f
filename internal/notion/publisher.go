package notion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"
	"time"

	"diary-sync/internal/entry"

	"github.com/jomei/notionapi"
)

const (
	PropertyTitle       = "Title"
	PropertyDate        = "Date"
	PropertyContentJP   = "Content (JP)"
	PropertyContentCN   = "Content (CN)"
	PropertyOriginalURL = "Original URL"
	PropertyImage       = "Image"
)

// PageCreator is satisfied by notionapi.Client.Page.
type PageCreator interface {
	Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// BlockAppender is satisfied by notionapi.Client.Block.
type BlockAppender interface {
	AppendChildren(ctx context.Context, id notionapi.BlockID, req *notionapi.AppendBlockChildrenRequest) (*notionapi.AppendBlockChildrenResponse, error)
}

type Options struct {
	DatabaseID string
	// GithubRepository ("owner/name") and GithubBranch point at a public copy
	// of MediaDir; when set, downloaded files are linked from there.
	GithubRepository string
	GithubBranch     string
	MediaDir         string
	// Delay is slept after each created page.
	Delay  time.Duration
	Logger *log.Logger
}

type Publisher struct {
	pages      PageCreator
	blocks     BlockAppender
	databaseID notionapi.DatabaseID
	repo       string
	branch     string
	mediaDir   string
	delay      time.Duration
	logger     *log.Logger
	sleep      func(ctx context.Context, d time.Duration)
}

// NewFromToken builds a publisher backed by the Notion API.
func NewFromToken(token string, opts Options) *Publisher {
	client := notionapi.NewClient(notionapi.Token(token))
	return New(client.Page, client.Block, opts)
}

func New(pages PageCreator, blocks BlockAppender, opts Options) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	branch := opts.GithubBranch
	if branch == "" {
		branch = "main"
	}
	mediaDir := filepath.ToSlash(filepath.Clean(opts.MediaDir))
	if mediaDir == "." {
		mediaDir = ""
	}

	return &Publisher{
		pages:      pages,
		blocks:     blocks,
		databaseID: notionapi.DatabaseID(opts.DatabaseID),
		repo:       strings.Trim(opts.GithubRepository, "/"),
		branch:     branch,
		mediaDir:   mediaDir,
		delay:      opts.Delay,
		logger:     logger,
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		},
	}
}

// Publish creates one database page for e and returns its URL.
func (p *Publisher) Publish(ctx context.Context, e *entry.Entry) (string, error) {
	if p.databaseID == "" {
		return "", errors.New("notion: database id is not set")
	}

	children := chunk(p.children(e.Blocks), maxChildrenPerRequest)
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: p.databaseID,
		},
		Properties: p.properties(e),
	}
	if len(children) > 0 {
		req.Children = children[0]
	}

	page, err := p.pages.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("notion: create page for %s: %w", e.ID, err)
	}

	for i, rest := range children[min(1, len(children)):] {
		_, err := p.blocks.AppendChildren(ctx, notionapi.BlockID(page.ID), &notionapi.AppendBlockChildrenRequest{
			Children: rest,
		})
		if err != nil {
			return page.URL, fmt.Errorf("notion: append blocks batch %d for %s: %w", i+1, e.ID, err)
		}
	}

	p.logger.Printf("notion: created page for %s: %s", e.ID, page.URL)
	if p.delay > 0 {
		p.sleep(ctx, p.delay)
	}
	return page.URL, nil
}

func (p *Publisher) properties(e *entry.Entry) notionapi.Properties {
	props := notionapi.Properties{
		PropertyTitle: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(e.Title),
		},
		PropertyDate: notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: dateOf(e.Timestamp)},
		},
		PropertyContentJP: notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(e.OriginalText),
		},
		PropertyContentCN: notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(e.TranslatedText),
		},
	}
	if e.CoverURL != "" {
		props[PropertyOriginalURL] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  e.CoverURL,
		}
	}
	if name, u := p.pageImage(e); u != "" {
		props[PropertyImage] = notionapi.FilesProperty{
			Type: notionapi.PropertyTypeFiles,
			Files: []notionapi.File{{
				Name:     name,
				Type:     notionapi.FileTypeExternal,
				External: &notionapi.FileObject{URL: u},
			}},
		}
	}
	return props
}

// pageImage picks the image shown in the database view: the cover image, or
// the first inline image when the cover is a video.
func (p *Publisher) pageImage(e *entry.Entry) (string, string) {
	if e.CoverType == entry.CoverVideo {
		b, ok := e.FirstImage()
		if !ok {
			return "", ""
		}
		return displayName(b.Filename, b.URL), p.mediaURL(b.Filename, b.URL)
	}
	if e.CoverURL == "" && e.CoverFilename == "" {
		return "", ""
	}
	return displayName(e.CoverFilename, e.CoverURL), p.mediaURL(e.CoverFilename, e.CoverURL)
}

// mediaURL prefers the permanent repository copy of a downloaded file.
func (p *Publisher) mediaURL(filename, sourceURL string) string {
	if p.repo != "" && filename != "" {
		return "https://raw.githubusercontent.com/" + path.Join(p.repo, p.branch, p.mediaDir, filename)
	}
	return sourceURL
}

func displayName(filename, sourceURL string) string {
	if filename != "" {
		return filename
	}
	name := path.Base(strings.SplitN(sourceURL, "?", 2)[0])
	if name == "." || name == "/" {
		return "cover"
	}
	return name
}

func dateOf(t time.Time) *notionapi.Date {
	d := notionapi.Date(t)
	return &d
}
