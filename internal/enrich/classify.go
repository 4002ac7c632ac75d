package enrich

import "strings"

// UnknownCountry is reported when no keyword matches.
const UnknownCountry = "Unknown"

// DefaultTopic is reported when no topic keyword matches.
const DefaultTopic = "regulatory_policy"

type countryKeyword struct {
	keyword string
	country string
}

// Table order is the only priority: the first entry found wins.
var countryTable = []countryKeyword{
	{"mexico", "Mexico"},
	{"california", "USA"},
	{"texas", "USA"},
	{"new york", "USA"},
	{"us senate", "USA"},
	{"us house", "USA"},
	{"canada", "Canada"},
	{"ontario", "Canada"},
	{"british columbia", "Canada"},
	{"dof", "Mexico"},
	{"diputados", "Mexico"},
	{"senado", "Mexico"},
	{"federal register", "USA"},
	{"congress", "USA"},
	{"hansard", "Canada"},
	{"gazette", "Canada"},
}

type topicRule struct {
	topic    string
	keywords []string
}

var topicRules = []topicRule{
	{"energy_policy", []string{"energy", "grid", "carbon", "climate"}},
	{"agriculture_policy", []string{"agriculture", "water", "farming"}},
	{"fiscal_policy", []string{"budget", "finance", "fiscal", "tax"}},
	{"mining_policy", []string{"mining", "lithium", "copper", "mineral"}},
}

// DetectCountry scans text against the country table, case-insensitively.
func DetectCountry(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range countryTable {
		if strings.Contains(lower, entry.keyword) {
			return entry.country
		}
	}
	return UnknownCountry
}

// DetectTopic returns the first topic whose keywords appear in text.
func DetectTopic(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range topicRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.topic
			}
		}
	}
	return DefaultTopic
}

// KnownCountry reports the canonical spelling of c when it is one of the
// countries the keyword table can produce, or UnknownCountry.
func KnownCountry(c string) (string, bool) {
	c = strings.TrimSpace(c)
	if strings.EqualFold(c, UnknownCountry) {
		return UnknownCountry, true
	}
	for _, entry := range countryTable {
		if strings.EqualFold(c, entry.country) {
			return entry.country, true
		}
	}
	return "", false
}

// KnownTopic reports the canonical spelling of t when it is a rule topic or
// DefaultTopic.
func KnownTopic(t string) (string, bool) {
	t = strings.TrimSpace(t)
	if strings.EqualFold(t, DefaultTopic) {
		return DefaultTopic, true
	}
	for _, rule := range topicRules {
		if strings.EqualFold(t, rule.topic) {
			return rule.topic, true
		}
	}
	return "", false
}

// InferCountry tries the title, then the body, then the fetcher hint.
// Hints outside the known countries are ignored.
func InferCountry(title, text, hint string) string {
	if c := DetectCountry(title); c != UnknownCountry {
		return c
	}
	if c := DetectCountry(text); c != UnknownCountry {
		return c
	}
	if c, ok := KnownCountry(hint); ok {
		return c
	}
	return UnknownCountry
}

// InferTopic tries the title, then the body, then the fetcher hint.
// Hints outside the known topics are ignored.
func InferTopic(title, text, hint string) string {
	if t := DetectTopic(title); t != DefaultTopic {
		return t
	}
	if t := DetectTopic(text); t != DefaultTopic {
		return t
	}
	if t, ok := KnownTopic(hint); ok {
		return t
	}
	return DefaultTopic
}
