package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported publisher types.
const (
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeGCPPubSub = "gcp_pubsub"
	TypeHTTP      = "http"
)

// Settings is the decoded publishers file.
type Settings struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig declares one sink. Events limits which event types reach
// it; an empty list subscribes to all of them.
type PublisherConfig struct {
	ID        string               `json:"id" yaml:"id"`
	Type      string               `json:"type" yaml:"type"`
	Enabled   *bool                `json:"enabled" yaml:"enabled"`
	Events    []string             `json:"events" yaml:"events"`
	SQS       *SQSPublisherConfig  `json:"sqs" yaml:"sqs"`
	SNS       *SNSPublisherConfig  `json:"sns" yaml:"sns"`
	GCPPubSub *GCPQueueConfig      `json:"gcp_pubsub" yaml:"gcp_pubsub"`
	HTTP      *HTTPPublisherConfig `json:"http" yaml:"http"`
}

// AWSCredentials optionally pins static credentials instead of the default chain.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

// SQSPublisherConfig holds AWS SQS settings.
type SQSPublisherConfig struct {
	QueueURL    string          `json:"uri" yaml:"uri"`
	Region      string          `json:"region" yaml:"region"`
	Endpoint    string          `json:"endpoint" yaml:"endpoint"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials"`
}

// SNSPublisherConfig holds AWS SNS settings.
type SNSPublisherConfig struct {
	TopicARN    string          `json:"topic_arn" yaml:"topic_arn"`
	Region      string          `json:"region" yaml:"region"`
	Endpoint    string          `json:"endpoint" yaml:"endpoint"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials"`
}

// GCPQueueConfig holds Google Cloud Pub/Sub settings.
type GCPQueueConfig struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
	Topic     string `json:"topic" yaml:"topic"`
}

// HTTPPublisherConfig holds webhook settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// LoadSettings reads and normalizes a publishers file. Files ending in .json
// are decoded as JSON, anything else as YAML.
func LoadSettings(path string) (*Settings, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var s Settings
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(raw, &s)
	} else {
		err = yaml.Unmarshal(raw, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("decode publishers file %s: %w", filepath.Base(path), err)
	}
	if len(s.Publishers) == 0 {
		return nil, errors.New("publishers file declares no publishers")
	}

	ids := make(map[string]bool, len(s.Publishers))
	for i := range s.Publishers {
		cfg := &s.Publishers[i]
		if err := cfg.normalize(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if ids[cfg.ID] {
			return nil, fmt.Errorf("publishers[%d]: duplicate id %q", i, cfg.ID)
		}
		ids[cfg.ID] = true
	}
	return &s, nil
}

// Enabled returns the publishers that are not switched off.
func (s *Settings) Enabled() []PublisherConfig {
	if s == nil {
		return nil
	}
	out := make([]PublisherConfig, 0, len(s.Publishers))
	for _, cfg := range s.Publishers {
		if cfg.Enabled == nil || *cfg.Enabled {
			out = append(out, cfg)
		}
	}
	return out
}

// normalize trims and defaults cfg in place, then checks the block that
// matches its type. Blocks for other types are ignored.
func (cfg *PublisherConfig) normalize() error {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.ID == "" {
		return errors.New("id is required")
	}

	events := cfg.Events[:0]
	for _, e := range cfg.Events {
		e = strings.ToLower(strings.TrimSpace(e))
		if !knownEventTypes[e] {
			return fmt.Errorf("publisher %q: unknown event type %q", cfg.ID, e)
		}
		events = append(events, e)
	}
	cfg.Events = events

	var err error
	switch cfg.Type {
	case TypeHTTP:
		err = requireBlock(cfg.HTTP, cfg.HTTP.normalize)
	case TypeSQS:
		err = requireBlock(cfg.SQS, cfg.SQS.normalize)
	case TypeSNS:
		err = requireBlock(cfg.SNS, cfg.SNS.normalize)
	case TypeGCPPubSub:
		err = requireBlock(cfg.GCPPubSub, cfg.GCPPubSub.normalize)
	case "":
		err = errors.New("type is required")
	default:
		err = fmt.Errorf("unsupported type %q", cfg.Type)
	}
	if err != nil {
		return fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	return nil
}

func requireBlock[T any](block *T, normalize func() error) error {
	if block == nil {
		return errors.New("missing type-specific configuration block")
	}
	return normalize()
}

func (c *HTTPPublisherConfig) normalize() error {
	c.URL = strings.TrimSpace(c.URL)
	if c.URL == "" {
		return errors.New("http.url is required")
	}
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method == "" {
		c.Method = "POST"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 5
	}
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			headers[k] = v
		}
	}
	c.Headers = headers
	return nil
}

func (c *SQSPublisherConfig) normalize() error {
	return normalizeAWS("sqs", "uri", &c.QueueURL, &c.Region, &c.Endpoint, c.Credentials)
}

func (c *SNSPublisherConfig) normalize() error {
	return normalizeAWS("sns", "topic_arn", &c.TopicARN, &c.Region, &c.Endpoint, c.Credentials)
}

// normalizeAWS handles the fields SQS and SNS share; target is the queue URL
// or topic ARN, reported as block.targetField when missing.
func normalizeAWS(block, targetField string, target, region, endpoint *string, creds *AWSCredentials) error {
	*target = strings.TrimSpace(*target)
	*region = strings.TrimSpace(*region)
	*endpoint = strings.TrimSpace(*endpoint)
	if *target == "" {
		return fmt.Errorf("%s.%s is required", block, targetField)
	}
	if *region == "" {
		return fmt.Errorf("%s.region is required", block)
	}
	if creds != nil && (strings.TrimSpace(creds.AccessKeyID) == "" || strings.TrimSpace(creds.SecretAccessKey) == "") {
		return fmt.Errorf("%s.credentials need both access_key_id and secret_access_key", block)
	}
	return nil
}

func (c *GCPQueueConfig) normalize() error {
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	c.Topic = strings.TrimSpace(c.Topic)
	if c.ProjectID == "" || c.Topic == "" {
		return errors.New("gcp_pubsub.project_id and gcp_pubsub.topic are required")
	}
	return nil
}
