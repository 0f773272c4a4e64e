package admin

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/campus-sarthi/sarthi/backend/internal/model/chat"
)

//go:embed seed.yaml
var seedYAML []byte

// Dataset is the full set of admin mock data.
type Dataset struct {
	KPI           KPI                   `yaml:"kpi"`
	ChartData     []ChartPoint          `yaml:"chartData"`
	Documents     []Document            `yaml:"documents"`
	Conversations []Conversation        `yaml:"-"`
	Volunteers    []VolunteerSubmission `yaml:"volunteers"`
}

type seedMessage struct {
	ID         string        `yaml:"id"`
	Role       string        `yaml:"role"`
	Content    string        `yaml:"content"`
	Timestamp  time.Time     `yaml:"timestamp"`
	Confidence *int          `yaml:"confidence"`
	Sources    []chat.Source `yaml:"sources"`
}

type seedConversation struct {
	Conversation `yaml:",inline"`
	Messages     []seedMessage `yaml:"messages"`
}

type seedFile struct {
	Dataset       `yaml:",inline"`
	Conversations []seedConversation `yaml:"conversations"`
}

// Seed parses the embedded mock dataset.
func Seed() (Dataset, error) {
	return ParseSeed(seedYAML)
}

// ParseSeed decodes a dataset in the seed.yaml layout.
func ParseSeed(raw []byte) (Dataset, error) {
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Dataset{}, fmt.Errorf("decode admin seed: %w", err)
	}

	ds := file.Dataset
	ds.Conversations = make([]Conversation, 0, len(file.Conversations))
	for _, sc := range file.Conversations {
		conv := sc.Conversation
		conv.Messages = make([]chat.Message, 0, len(sc.Messages))
		for _, sm := range sc.Messages {
			if sm.Role != string(chat.RoleUser) && sm.Role != string(chat.RoleAssistant) {
				return Dataset{}, fmt.Errorf("conversation %s: message %s has unknown role %q", conv.ID, sm.ID, sm.Role)
			}
			conv.Messages = append(conv.Messages, chat.Message{
				ID:         sm.ID,
				Role:       chat.Role(sm.Role),
				Content:    sm.Content,
				CreatedAt:  sm.Timestamp,
				Confidence: sm.Confidence,
				Sources:    sm.Sources,
			})
		}
		ds.Conversations = append(ds.Conversations, conv)
	}
	return ds, nil
}
