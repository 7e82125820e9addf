package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const redactedValue = "********"

// Redacted returns a copy of the configuration with secrets masked. Unset
// optional secrets stay unset so the output shows which credentials exist.
func (c *Config) Redacted() *Config {
	out := *c

	out.Database.URL = redactURL(c.Database.URL)
	if c.Redis.Password != nil {
		masked := redactedValue
		out.Redis.Password = &masked
	}
	if c.Neo4j.Password != "" {
		out.Neo4j.Password = redactedValue
	}
	if c.Elasticsearch.Password != "" {
		out.Elasticsearch.Password = redactedValue
	}
	if c.Elasticsearch.APIKey != "" {
		out.Elasticsearch.APIKey = redactedValue
	}
	return &out
}

// YAML renders the redacted configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

var dsnPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)

// redactURL masks the password of a PostgreSQL connection string in either
// URL or keyword/value form.
func redactURL(raw string) string {
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return redactedValue
		}
		if _, ok := u.User.Password(); !ok {
			return u.String()
		}
		// url.UserPassword would percent-encode the mask.
		userinfo := url.User(u.User.Username()).String() + ":" + redactedValue + "@"
		u.User = nil
		return strings.Replace(u.String(), "://", "://"+userinfo, 1)
	}
	return dsnPassword.ReplaceAllString(raw, "${1}"+redactedValue)
}
