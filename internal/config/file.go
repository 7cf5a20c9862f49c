package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// File represents the structure of the .wikidump configuration file.
type File struct {
	BaseURL               string            `yaml:"baseURL,omitempty"`
	Username              string            `yaml:"username,omitempty"`
	Password              string            `yaml:"password,omitempty"`
	VerifyPeerCertificate *bool             `yaml:"verifyPeerCertificate,omitempty"`
	Proxy                 string            `yaml:"proxy,omitempty"`
	Headers               map[string]string `yaml:"headers,omitempty"`

	ExportFolder      string `yaml:"exportFolder,omitempty"`
	DownloadSubFolder string `yaml:"downloadSubFolder,omitempty"`
	TemplateFile      string `yaml:"templateFile,omitempty"`

	// Spaces maps space keys to optional root page ids. A sequence of keys
	// is accepted as well.
	Spaces SpaceMap `yaml:"spaces,omitempty"`
	Pages  IDList   `yaml:"pages,omitempty"`

	ThumbnailFormats        []string `yaml:"thumbnailFormats,omitempty"`
	GeneratedPreviewFormats []string `yaml:"generatedPreviewFormats,omitempty"`
	ForwardMessage          string   `yaml:"forwardMessage,omitempty"`

	CacheDSN          string        `yaml:"cacheDSN,omitempty"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond,omitempty"`
	Retries           uint64        `yaml:"retries,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
}

// SpaceMap keeps the configured spaces in file order.
type SpaceMap []SpaceSelection

// UnmarshalYAML accepts a mapping of key to page ids or a sequence of keys.
func (m *SpaceMap) UnmarshalYAML(node *yaml.Node) error {
	var spaces SpaceMap
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			var ids IDList
			if err := ids.UnmarshalYAML(node.Content[i+1]); err != nil {
				return fmt.Errorf("space %s: %w", node.Content[i].Value, err)
			}
			spaces = append(spaces, SpaceSelection{Key: node.Content[i].Value, PageIDs: ids})
		}
	case yaml.SequenceNode:
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: space key must be a scalar", n.Line)
			}
			spaces = append(spaces, SpaceSelection{Key: n.Value})
		}
	case yaml.ScalarNode:
		if node.Tag != "!!null" && node.Value != "" {
			return fmt.Errorf("line %d: spaces must be a mapping or a sequence", node.Line)
		}
	default:
		return fmt.Errorf("line %d: spaces must be a mapping or a sequence", node.Line)
	}
	*m = spaces
	return nil
}

// IDList is a list of page ids. Numeric ids are kept verbatim.
type IDList []string

// UnmarshalYAML accepts a sequence of scalars, a single scalar or null.
func (l *IDList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		ids := make(IDList, 0, len(node.Content))
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: page id must be a scalar", n.Line)
			}
			ids = append(ids, n.Value)
		}
		*l = ids
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			*l = nil
			return nil
		}
		*l = IDList{node.Value}
	default:
		return fmt.Errorf("line %d: page ids must be a sequence", node.Line)
	}
	return nil
}

// Apply copies the values set in the file over c.
func (c *Config) Apply(f *File) {
	if f == nil {
		return
	}
	setString(&c.BaseURL, f.BaseURL)
	setString(&c.Username, f.Username)
	setString(&c.Password, f.Password)
	if f.VerifyPeerCertificate != nil {
		c.VerifyPeerCertificate = *f.VerifyPeerCertificate
	}
	setString(&c.Proxy, f.Proxy)
	if len(f.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(f.Headers))
		}
		for k, v := range f.Headers {
			c.Headers[k] = v
		}
	}
	setString(&c.ExportFolder, f.ExportFolder)
	setString(&c.DownloadSubFolder, f.DownloadSubFolder)
	setString(&c.TemplateFile, f.TemplateFile)
	if len(f.Spaces) > 0 {
		c.Spaces = append([]SpaceSelection(nil), f.Spaces...)
	}
	if len(f.Pages) > 0 {
		c.Pages = append([]string(nil), f.Pages...)
	}
	if f.ThumbnailFormats != nil {
		c.ThumbnailFormats = f.ThumbnailFormats
	}
	if f.GeneratedPreviewFormats != nil {
		c.GeneratedPreviewFormats = f.GeneratedPreviewFormats
	}
	setString(&c.ForwardMessage, f.ForwardMessage)
	setString(&c.CacheDSN, f.CacheDSN)
	if f.RequestsPerSecond != 0 {
		c.RequestsPerSecond = f.RequestsPerSecond
	}
	if f.Retries != 0 {
		c.Retries = f.Retries
	}
	if f.Timeout != 0 {
		c.Timeout = f.Timeout
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
