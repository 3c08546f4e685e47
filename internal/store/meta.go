package store

import (
	"encoding/json"
	"fmt"
)

// Meta carries per-platform metadata for an item. Each platform has its
// own concrete type; rows persist it as JSON tagged with a kind field, so
// nothing downstream has to rely on positional conventions.
type Meta interface {
	Kind() string
}

type RedditMeta struct {
	Author      string `json:"author"`
	Score       int    `json:"score"`
	NumComments int    `json:"num_comments"`
	Flair       string `json:"flair,omitempty"`
}

func (RedditMeta) Kind() string { return "reddit" }

type MediumMeta struct {
	Author string   `json:"author"`
	Tags   []string `json:"tags,omitempty"`
}

func (MediumMeta) Kind() string { return "medium" }

type HabrMeta struct {
	Author   string `json:"author"`
	Score    int    `json:"score"`
	Comments int    `json:"comments"`
}

func (HabrMeta) Kind() string { return "habr" }

type TelegramMeta struct {
	Channel string `json:"channel"`
	Views   int    `json:"views"`
}

func (TelegramMeta) Kind() string { return "telegram" }

type metaEnvelope struct {
	Kind     string        `json:"kind"`
	Reddit   *RedditMeta   `json:"reddit,omitempty"`
	Medium   *MediumMeta   `json:"medium,omitempty"`
	Habr     *HabrMeta     `json:"habr,omitempty"`
	Telegram *TelegramMeta `json:"telegram,omitempty"`
}

func encodeMeta(m Meta) (string, error) {
	if m == nil {
		return "", nil
	}
	env := metaEnvelope{Kind: m.Kind()}
	switch v := m.(type) {
	case RedditMeta:
		env.Reddit = &v
	case *RedditMeta:
		env.Reddit = v
	case MediumMeta:
		env.Medium = &v
	case *MediumMeta:
		env.Medium = v
	case HabrMeta:
		env.Habr = &v
	case *HabrMeta:
		env.Habr = v
	case TelegramMeta:
		env.Telegram = &v
	case *TelegramMeta:
		env.Telegram = v
	default:
		return "", fmt.Errorf("unknown metadata type %T", m)
	}
	b, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMeta(s string) (Meta, error) {
	var env metaEnvelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "reddit":
		if env.Reddit != nil {
			return *env.Reddit, nil
		}
	case "medium":
		if env.Medium != nil {
			return *env.Medium, nil
		}
	case "habr":
		if env.Habr != nil {
			return *env.Habr, nil
		}
	case "telegram":
		if env.Telegram != nil {
			return *env.Telegram, nil
		}
	case "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown metadata kind %q", env.Kind)
}
