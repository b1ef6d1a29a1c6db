package models

// RoutingRule maps a (city, district, issueType) combination to the contact
// email responsible for that kind of issue. District may be empty, meaning
// the rule applies to the whole city. Rules are immutable once loaded;
// uniqueness is not enforced, so lookups must honor table order.
type RoutingRule struct {
	ID           int64
	City         string
	District     string
	IssueType    string
	ContactEmail string
}

// ResolvedTarget is the contact chosen for a report. Rule is nil when no
// routing rule matched at any tier and the default contact was substituted.
type ResolvedTarget struct {
	ContactEmail string
	Rule         *RoutingRule
}
