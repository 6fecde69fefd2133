// Package naming maps logical topic, group, and database names to their
// environment-qualified physical names. In the dev environment every topic
// carries a "_dev" suffix and consumer groups a "-dev" suffix, so dev and
// prod deployments can share one broker without crossing streams.
package naming

import "strings"

const (
	topicSuffix = "_dev"
	groupSuffix = "-dev"
	dbSuffix    = "_dev"
)

// Policy qualifies logical names deterministically. The zero value is the
// production policy (identity mapping).
type Policy struct {
	Dev bool
}

// Qualify returns the physical topic name for a logical topic.
func (p Policy) Qualify(topic string) string {
	if p.Dev {
		return topic + topicSuffix
	}
	return topic
}

// QualifyAll maps a list of logical topics to physical names.
func (p Policy) QualifyAll(topics []string) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = p.Qualify(t)
	}
	return out
}

// Logical strips the environment qualifier from a physical topic name. Names
// without the qualifier pass through unchanged, so the mapping is total.
func (p Policy) Logical(topic string) string {
	if p.Dev {
		return strings.TrimSuffix(topic, topicSuffix)
	}
	return topic
}

// GroupID returns the consumer group id for a logical group name.
func (p Policy) GroupID(base string) string {
	if p.Dev {
		return base + groupSuffix
	}
	return base
}

// DBName returns the database name for a logical database.
func (p Policy) DBName(base string) string {
	if p.Dev {
		return base + dbSuffix
	}
	return base
}
