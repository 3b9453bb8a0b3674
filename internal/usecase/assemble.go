package usecase

import (
	"fmt"

	"pubmed-chat/internal/domain"
)

// Assemble builds the blocks of one assistant turn: the query first, then one
// block per requested id in order. An id without a fetched paper becomes an
// error block so the block count tracks the id list. Assemble is pure.
func Assemble(query string, ids []string, papers map[string]domain.Paper) []domain.Block {
	blocks := make([]domain.Block, 0, len(ids)+1)
	blocks = append(blocks, domain.QueryBlock(query))
	if len(ids) == 0 {
		return append(blocks, domain.ErrorBlock(MsgNoResults))
	}
	for _, id := range ids {
		p, ok := papers[id]
		if !ok {
			blocks = append(blocks, domain.ErrorBlock(fmt.Sprintf(MsgFetchFailed, id)))
			continue
		}
		blocks = append(blocks, domain.PaperBlock(p))
	}
	return blocks
}
