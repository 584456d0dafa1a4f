package notion

import (
	"strings"

	"diary-sync/internal/entry"

	"github.com/jomei/notionapi"
)

// maxTextRunes is Notion's limit for a single rich text content.
const maxTextRunes = 2000

// maxChildrenPerRequest is Notion's limit for children in one request.
const maxChildrenPerRequest = 100

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: truncate(content, maxTextRunes)},
	}}
}

func paragraph(content string) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeParagraph},
		Paragraph:  notionapi.Paragraph{RichText: richText(content)},
	}
}

func heading(content string) notionapi.Block {
	return &notionapi.Heading2Block{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeHeading2},
		Heading2:   notionapi.Heading{RichText: richText(content)},
	}
}

func divider() notionapi.Block {
	return &notionapi.DividerBlock{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeDivider},
		Divider:    notionapi.Divider{},
	}
}

func image(url string) notionapi.Block {
	return &notionapi.ImageBlock{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeImage},
		Image: notionapi.Image{
			Type:     notionapi.FileTypeExternal,
			External: &notionapi.FileObject{URL: url},
		},
	}
}

func video(url string) notionapi.Block {
	return &notionapi.VideoBlock{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeVideo},
		Video: notionapi.Video{
			Type:     notionapi.FileTypeExternal,
			External: &notionapi.FileObject{URL: url},
		},
	}
}

// children maps entry blocks to page content in order. Text becomes one
// paragraph per non-blank line. Media without any usable URL is dropped.
func (p *Publisher) children(blocks []entry.Block) []notionapi.Block {
	var out []notionapi.Block
	for _, b := range blocks {
		switch b.Kind {
		case entry.BlockText:
			for _, line := range strings.Split(b.Content, "\n") {
				if strings.TrimSpace(line) == "" {
					continue
				}
				out = append(out, paragraph(line))
			}
		case entry.BlockHeading:
			out = append(out, heading(b.Content))
		case entry.BlockDivider:
			out = append(out, divider())
		case entry.BlockImage:
			if u := p.mediaURL(b.Filename, b.URL); u != "" {
				out = append(out, image(u))
			}
		case entry.BlockVideo:
			if u := p.mediaURL(b.Filename, b.URL); u != "" {
				out = append(out, video(u))
			}
		}
	}
	return out
}

func chunk(blocks []notionapi.Block, size int) [][]notionapi.Block {
	var out [][]notionapi.Block
	for len(blocks) > size {
		out = append(out, blocks[:size])
		blocks = blocks[size:]
	}
	if len(blocks) > 0 {
		out = append(out, blocks)
	}
	return out
}
