package render

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
	"gopkg.in/yaml.v3"
)

// Rule rewrites links on a file-hosting provider into a direct-download form.
// A rule applies when Match is a substring of the URL; the first match of
// Pattern is substituted for {id} in Template.
type Rule struct {
	Name     string
	Match    string
	Pattern  *regexp.Regexp
	Template string
}

// Link is a resolved badge download link.
type Link struct {
	URL string `json:"url"`
	// Provider names the rule that rewrote the URL, empty when none did.
	Provider string `json:"provider,omitempty"`
	// Host is the registrable domain of the final URL, if it has one.
	Host string `json:"host,omitempty"`
}

// DriveRule turns Google Drive share links into uc?export=download links.
var DriveRule = Rule{
	Name:     "google-drive",
	Match:    "drive.google.com",
	Pattern:  regexp.MustCompile(`[-\w]{25,}`),
	Template: "https://drive.google.com/uc?export=download&id={id}",
}

// DefaultRules is the rule table used when no rules file is configured.
func DefaultRules() []Rule {
	return []Rule{DriveRule}
}

// ResolveLink applies the first rule whose Match occurs in raw. The URL is
// returned unchanged when no rule matches or the matching rule finds no token.
func ResolveLink(raw string, rules []Rule) Link {
	out := Link{URL: raw}
	if raw == "" {
		return out
	}
	for _, rule := range rules {
		if rule.Match == "" || !strings.Contains(raw, rule.Match) {
			continue
		}
		if rule.Pattern != nil {
			if token := rule.Pattern.FindString(raw); token != "" {
				out.URL = strings.ReplaceAll(rule.Template, "{id}", token)
				out.Provider = rule.Name
			}
		}
		// only the first matching provider is consulted
		break
	}
	out.Host = registrableHost(out.URL)
	return out
}

func registrableHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if host == "" {
		return ""
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return registrable
}

type ruleFile struct {
	Rules []struct {
		Name     string `yaml:"name"`
		Match    string `yaml:"match"`
		Pattern  string `yaml:"pattern"`
		Template string `yaml:"template"`
	} `yaml:"rules"`
}

// LoadRules reads a YAML rule table:
//
//	rules:
//	  - name: google-drive
//	    match: drive.google.com
//	    pattern: '[-\w]{25,}'
//	    template: https://drive.google.com/uc?export=download&id={id}
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read badge rules: %w", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse badge rules: %w", err)
	}
	rules := make([]Rule, 0, len(f.Rules))
	for i, r := range f.Rules {
		if r.Match == "" || r.Pattern == "" || r.Template == "" {
			return nil, fmt.Errorf("badge rule %d (%s): match, pattern and template are required", i, r.Name)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("badge rule %d (%s): %w", i, r.Name, err)
		}
		rules = append(rules, Rule{Name: r.Name, Match: r.Match, Pattern: re, Template: r.Template})
	}
	return rules, nil
}
