package answer

import (
	"context"
	"strings"

	"github.com/campus-sarthi/sarthi/backend/internal/model/chat"
)

type keywordRule struct {
	keywords []string
	reply    Reply
}

// KeywordAnswerer is the canned backend used when no answer service is
// deployed. The first rule with a matching substring wins.
type KeywordAnswerer struct {
	rules    []keywordRule
	fallback Reply
}

// NewKeywordAnswerer returns the campus mock with library, cafeteria and
// registration answers.
func NewKeywordAnswerer() *KeywordAnswerer {
	return &KeywordAnswerer{
		rules: []keywordRule{
			{
				keywords: []string{"library", "hours"},
				reply: Reply{
					Answer:     "The library is open Monday-Friday from 8 AM to 10 PM, and Saturday-Sunday from 10 AM to 6 PM.",
					Confidence: 95,
					Sources: []chat.Source{{
						ID:      "src-1",
						Title:   "Library Guidelines",
						Page:    2,
						Excerpt: "Operating hours: Mon-Fri 8:00-22:00, Sat-Sun 10:00-18:00",
					}},
					Suggestions: []string{"What services does the library offer?", "How do I reserve a study room?"},
				},
			},
			{
				keywords: []string{"cafeteria", "food", "eat"},
				reply: Reply{
					Answer:     "The main cafeteria is located in Building A, first floor. It serves breakfast from 7-10 AM, lunch from 11:30 AM-2 PM, and dinner from 5-8 PM.",
					Confidence: 92,
					Sources: []chat.Source{{
						ID:      "src-2",
						Title:   "Campus Map",
						Page:    1,
						Excerpt: "Main Cafeteria - Building A, Ground Floor",
					}},
					Suggestions: []string{"What food options are available?", "Are there vegetarian options?"},
				},
			},
			{
				keywords: []string{"register", "course", "enroll"},
				reply: Reply{
					Answer:     "Course registration opens two weeks before the semester starts. You can register through the student portal using your student ID and password.",
					Confidence: 88,
					Sources: []chat.Source{{
						ID:      "src-3",
						Title:   "Academic Calendar",
						Page:    3,
						Excerpt: "Registration period: Two weeks prior to semester start",
					}},
					Suggestions: []string{"How do I add or drop a course?", "What is the registration deadline?"},
				},
			},
		},
		fallback: Reply{
			Answer:      "I understand you're asking about campus information. Could you please provide more specific details so I can help you better?",
			Confidence:  65,
			Sources:     []chat.Source{},
			Suggestions: []string{"Library hours", "Cafeteria location", "Course registration"},
		},
	}
}

func (k *KeywordAnswerer) Name() string { return "mock" }

// Answer never fails.
func (k *KeywordAnswerer) Answer(_ context.Context, q Query) (Reply, error) {
	text := strings.ToLower(q.Text)
	for _, rule := range k.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return cloneReply(rule.reply), nil
			}
		}
	}
	return cloneReply(k.fallback), nil
}

func cloneReply(r Reply) Reply {
	r.Sources = append([]chat.Source{}, r.Sources...)
	r.Suggestions = append([]string(nil), r.Suggestions...)
	return r
}
