package match

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lalith-99/confide/internal/models"
)

// ExcerptRunes caps the sample text shown for a candidate.
const ExcerptRunes = 160

// Profile is one candidate user, built per request and never stored.
type Profile struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Score       float64   `json:"score"`
	SampleText  string    `json:"sample_text"`
	CommonTags  []string  `json:"common_tags"`
}

// PoolSignal merges the caller's narratives into one signal: the union of
// their tags and their texts joined.
func PoolSignal(narratives []models.Narrative) Signal {
	var (
		tags  []string
		texts []string
	)
	for _, n := range narratives {
		if !n.Eligible() {
			continue
		}
		tags = append(tags, n.Tags...)
		texts = append(texts, narrativeText(n))
	}
	return NewSignal(tags, strings.Join(texts, "\n"))
}

// Aggregate scores every eligible candidate narrative against the caller and
// folds them per owner. An owner keeps the best score and the excerpt of the
// narrative that reached it; common tags are unioned over all their
// narratives. Owners come back in first-seen order.
func Aggregate(caller Signal, candidates []models.Narrative) []Profile {
	type acc struct {
		profile Profile
		common  set
	}

	byOwner := make(map[uuid.UUID]*acc)
	var order []uuid.UUID

	for _, n := range candidates {
		if !n.Eligible() {
			continue
		}
		sig := NewSignal(n.Tags, narrativeText(n))
		score := Score(caller, sig)

		a, ok := byOwner[n.OwnerID]
		if !ok {
			a = &acc{
				profile: Profile{CandidateID: n.OwnerID, Score: score, SampleText: Excerpt(n.Body)},
				common:  make(set),
			}
			byOwner[n.OwnerID] = a
			order = append(order, n.OwnerID)
		} else if score > a.profile.Score {
			a.profile.Score = score
			a.profile.SampleText = Excerpt(n.Body)
		}

		for t := range sig.tags {
			if caller.tags.has(t) {
				a.common.add(t)
			}
		}
	}

	profiles := make([]Profile, 0, len(order))
	for _, owner := range order {
		a := byOwner[owner]
		p := a.profile
		p.CommonTags = a.common.sorted()
		profiles = append(profiles, p)
	}
	return profiles
}

// Excerpt trims body to ExcerptRunes runes, marking the cut with an ellipsis.
func Excerpt(body string) string {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= ExcerptRunes {
		return body
	}
	runes := []rune(body)
	return strings.TrimSpace(string(runes[:ExcerptRunes])) + "…"
}

func narrativeText(n models.Narrative) string {
	return n.Title + " " + n.Body
}
