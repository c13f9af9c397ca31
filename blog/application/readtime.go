package application

import (
	"strings"

	"github.com/dfryer1193/spaceblog/blog/domain"
)

const WordsPerMinute = 200

// CountWords counts whitespace separated tokens in every heading and every
// body fragment.
func CountWords(content []domain.ContentBlock) int {
	total := 0
	for _, block := range content {
		total += len(strings.Fields(block.Heading))
		for _, node := range block.Body {
			total += len(strings.Fields(node.Text))
		}
	}
	return total
}

// ReadTime estimates reading time in whole minutes, rounded up.
func ReadTime(content []domain.ContentBlock) int {
	return (CountWords(content) + WordsPerMinute - 1) / WordsPerMinute
}
