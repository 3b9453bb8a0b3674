// Package render writes result blocks and transcript turns as Markdown text.
package render

import (
	"fmt"
	"io"
	"strings"

	"pubmed-chat/internal/domain"
)

const (
	headingQuery   = "**🔍 検索クエリ**: "
	labelAuthors   = "👨‍⚕️ **著者:** "
	labelPubDate   = "📅 **発表日:** "
	labelLink      = "🔗 [PubMedリンクはこちら]"
	labelSummary   = "📝 要約: "
	noAbstractText = "⚠️ この論文にはAbstractが含まれていません。"
	separator      = "----"
)

// Blocks writes one assistant turn. Blocks are rendered in order; each paper
// is preceded by a separator line.
func Blocks(w io.Writer, blocks []domain.Block) error {
	p := &printer{w: w}
	for _, b := range blocks {
		switch b.Type {
		case domain.BlockQuery:
			p.line(headingQuery + "`" + b.Query + "`")
		case domain.BlockPaper:
			if b.Paper == nil {
				continue
			}
			paper(p, *b.Paper)
		case domain.BlockError:
			p.line(b.Message)
		default:
			p.line(fmt.Sprintf("(unknown block %q)", b.Type))
		}
		p.line("")
	}
	return p.err
}

// Turn writes a transcript turn with a role header.
func Turn(w io.Writer, turn domain.ConversationTurn) error {
	p := &printer{w: w}
	switch turn.Role {
	case domain.RoleUser:
		p.line("🧑 " + turn.Text)
		p.line("")
		return p.err
	default:
		p.line("🤖")
		if p.err != nil {
			return p.err
		}
		return Blocks(w, turn.Blocks)
	}
}

func paper(p *printer, pp domain.Paper) {
	p.line(separator)
	p.line("📄 " + pp.Title)
	p.line(labelAuthors + pp.Authors + "　｜　" + labelPubDate + pp.PubDate)
	p.line(labelLink + "(" + pp.URL + ")")
	if pp.Summary == "" {
		p.line(noAbstractText)
		return
	}
	p.line(labelSummary + strings.TrimSpace(pp.Summary))
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s+"\n")
}
