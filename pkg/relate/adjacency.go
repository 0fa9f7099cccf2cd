package relate

import (
	"strings"

	"github.com/cloudplot/cloudplot/pkg/resource"
)

// AdjacencyRule recognizes structural containment at a finer grain than the
// organizational scope. A rule matches when a resource of ChildType carries,
// at PropertyPath inside its property bag, the id of a known resource of
// ParentType from the same provider. Matches emit ConnectsTo(parent → child).
//
// PropertyPath is dot-separated ("ipConfiguration.subnet_ref").
type AdjacencyRule struct {
	Provider     resource.Provider
	ParentType   string
	ChildType    string
	PropertyPath string
}

// BuiltinRules returns the default adjacency rule set. Callers may extend or
// replace it via WithRules.
func BuiltinRules() []AdjacencyRule {
	return []AdjacencyRule{
		// Azure
		{resource.Azure, "Microsoft.Network/virtualNetworks", "Microsoft.Network/virtualNetworks/subnets", "network_ref"},
		{resource.Azure, "Microsoft.Compute/virtualMachineScaleSets", "Microsoft.Compute/virtualMachines", "scale_set_ref"},
		{resource.Azure, "Microsoft.Storage/storageAccounts", "Microsoft.Storage/storageAccounts/blobServices", "account_ref"},

		// AWS
		{resource.AWS, "AWS::EC2::VPC", "AWS::EC2::Subnet", "vpcId"},
		{resource.AWS, "AWS::ECS::Cluster", "AWS::ECS::Service", "clusterArn"},
		{resource.AWS, "AWS::RDS::DBCluster", "AWS::RDS::DBInstance", "dbClusterIdentifier"},

		// GCP
		{resource.GCP, "compute.googleapis.com/Network", "compute.googleapis.com/Subnetwork", "network"},
		{resource.GCP, "container.googleapis.com/Cluster", "container.googleapis.com/NodePool", "cluster"},
	}
}

// detectAdjacency evaluates the rule set against one candidate child.
func (e *Engine) detectAdjacency(r *resource.Resource, index map[string]*resource.Resource) []Relationship {
	var rels []Relationship
	for _, rule := range e.rules {
		if rule.Provider != r.Provider || rule.ChildType != r.Type {
			continue
		}
		val, ok := r.Property(strings.Split(rule.PropertyPath, ".")...)
		if !ok || val.Kind != resource.KindString || val.Str == "" {
			continue
		}
		parent, ok := index[val.Str]
		if !ok || parent.ID == r.ID {
			continue
		}
		if parent.Type != rule.ParentType || parent.Provider != rule.Provider {
			continue
		}
		rels = append(rels, Relationship{
			Source: parent.ID,
			Target: r.ID,
			Type:   ConnectsTo,
			Meta: map[string]string{
				MetaDetector: "adjacency",
				MetaRule:     rule.ParentType + "->" + rule.ChildType,
				MetaPath:     rule.PropertyPath,
			},
		})
	}
	return rels
}
