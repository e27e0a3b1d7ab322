package llms

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const tokenEncoding = "cl100k_base"

// TokenCounter counts prompt tokens with the cl100k_base encoding. When the encoding
// cannot be loaded it falls back to an estimate of four bytes per token.
type TokenCounter struct {
	once sync.Once
	tkm  *tiktoken.Tiktoken
}

func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

func (c *TokenCounter) Count(text string) int {
	c.once.Do(func() {
		tkm, err := tiktoken.GetEncoding(tokenEncoding)
		if err != nil {
			log.Debugf("token encoding unavailable, estimating token counts: %v", err)
			return
		}
		c.tkm = tkm
	})

	if c.tkm == nil {
		return estimateTokens(text)
	}
	return len(c.tkm.Encode(text, nil, nil))
}

func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
