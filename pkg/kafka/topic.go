package kafka

// TopicPrefix namespaces every topic this system publishes to.
const TopicPrefix = "reviews"

// Topic builds a topic name of the form "reviews.<domain>.<action>".
func Topic(domain, action string) string {
	return TopicPrefix + "." + domain + "." + action
}
