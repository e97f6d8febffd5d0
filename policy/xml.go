package policy

import (
	"encoding/xml"
	"fmt"
)

// accessPolicyXML mirrors the federation's System Metadata accessPolicy
// element: a sequence of allow rules, each granting one or more
// permissions to one or more subjects.
type accessPolicyXML struct {
	XMLName xml.Name   `xml:"accessPolicy"`
	Allow   []allowXML `xml:"allow"`
}

type allowXML struct {
	Subjects    []string `xml:"subject"`
	Permissions []string `xml:"permission"`
}

// MarshalXMLPolicy serializes access rules as a System Metadata
// accessPolicy fragment. Rules with no subjects or no valid permission
// are skipped.
func MarshalXMLPolicy(rules []Rule) ([]byte, error) {
	doc := accessPolicyXML{}
	for _, r := range rules {
		if len(r.Subjects) == 0 || !r.Permission.Valid() {
			continue
		}
		doc.Allow = append(doc.Allow, allowXML{
			Subjects:    r.Subjects,
			Permissions: []string{string(r.Permission)},
		})
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("policy: marshal access policy: %w", err)
	}
	return out, nil
}

// UnmarshalXMLPolicy parses a System Metadata accessPolicy fragment into
// access rules. An allow element listing several permissions collapses to
// its highest level, since higher levels imply the lower ones.
func UnmarshalXMLPolicy(data []byte) ([]Rule, error) {
	var doc accessPolicyXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("policy: unmarshal access policy: %w", err)
	}

	rules := make([]Rule, 0, len(doc.Allow))
	for _, a := range doc.Allow {
		if len(a.Subjects) == 0 {
			continue
		}
		perm := PermissionNone
		for _, s := range a.Permissions {
			p, err := ParsePermission(s)
			if err != nil {
				return nil, err
			}
			perm = Max(perm, p)
		}
		if perm == PermissionNone {
			continue
		}
		rules = append(rules, Rule{Subjects: a.Subjects, Permission: perm})
	}
	return rules, nil
}
