package service

import (
	"regexp"
	"strings"
)

// mentionPattern matches @name tokens. Names may contain word characters,
// dots and dashes, mirroring what the composer lets users type.
var mentionPattern = regexp.MustCompile(`@([\w.\-]+)`)

// extractMentions resolves @name tokens in content to user ids, matching
// either the display name or the id itself. Unresolvable tokens are dropped.
// Caller must hold r.mu.
func (r *Room) extractMentions(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	var mentions []string
	seen := make(map[string]bool)
	for _, match := range matches {
		token := match[1]
		for _, u := range r.users {
			if !strings.EqualFold(u.Name, token) && u.ID != token {
				continue
			}
			if !seen[u.ID] {
				seen[u.ID] = true
				mentions = append(mentions, u.ID)
			}
			break
		}
	}
	return mentions
}
