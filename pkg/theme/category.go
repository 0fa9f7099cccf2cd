package theme

import (
	"strings"

	"github.com/cloudplot/cloudplot/pkg/resource"
)

// Category is the coarse visual classification of a resource type.
type Category string

// Categories recognized by the classification tables.
const (
	CategoryCompute  Category = "compute"
	CategoryStorage  Category = "storage"
	CategoryNetwork  Category = "network"
	CategoryDatabase Category = "database"
	CategorySecurity Category = "security"
	CategoryDefault  Category = "default"
)

// Categories returns all known categories in display order.
func Categories() []Category {
	return []Category{
		CategoryCompute, CategoryStorage, CategoryNetwork,
		CategoryDatabase, CategorySecurity, CategoryDefault,
	}
}

// classRule maps a case-insensitive type substring to a category.
// Rules are checked in order; the first match wins, so more specific
// substrings must precede general ones (SQL before Storage, for instance).
type classRule struct {
	substr   string
	category Category
}

var classTables = map[resource.Provider][]classRule{
	resource.Azure: {
		{"microsoft.sql", CategoryDatabase},
		{"microsoft.dbfor", CategoryDatabase},
		{"microsoft.documentdb", CategoryDatabase},
		{"microsoft.keyvault", CategorySecurity},
		{"microsoft.security", CategorySecurity},
		{"microsoft.compute", CategoryCompute},
		{"microsoft.containerservice", CategoryCompute},
		{"microsoft.web", CategoryCompute},
		{"microsoft.storage", CategoryStorage},
		{"microsoft.network", CategoryNetwork},
	},
	resource.AWS: {
		{"rds", CategoryDatabase},
		{"dynamodb", CategoryDatabase},
		{"redshift", CategoryDatabase},
		{"iam", CategorySecurity},
		{"kms", CategorySecurity},
		{"secretsmanager", CategorySecurity},
		{"ec2::instance", CategoryCompute},
		{"lambda", CategoryCompute},
		{"ecs", CategoryCompute},
		{"eks", CategoryCompute},
		{"s3", CategoryStorage},
		{"efs", CategoryStorage},
		{"ebs", CategoryStorage},
		{"vpc", CategoryNetwork},
		{"subnet", CategoryNetwork},
		{"elasticloadbalancing", CategoryNetwork},
		{"route53", CategoryNetwork},
	},
	resource.GCP: {
		{"sqladmin", CategoryDatabase},
		{"spanner", CategoryDatabase},
		{"bigtable", CategoryDatabase},
		{"firestore", CategoryDatabase},
		{"iam", CategorySecurity},
		{"cloudkms", CategorySecurity},
		{"compute.googleapis.com/instance", CategoryCompute},
		{"container.googleapis.com", CategoryCompute},
		{"run.googleapis.com", CategoryCompute},
		{"cloudfunctions", CategoryCompute},
		{"storage.googleapis.com", CategoryStorage},
		{"compute.googleapis.com/disk", CategoryStorage},
		{"compute.googleapis.com/network", CategoryNetwork},
		{"compute.googleapis.com/subnetwork", CategoryNetwork},
		{"dns.googleapis.com", CategoryNetwork},
	},
}

// Classify derives the category for a provider-specific type string.
// Unknown providers or unmatched types classify as CategoryDefault.
func Classify(p resource.Provider, typ string) Category {
	lower := strings.ToLower(typ)
	for _, rule := range classTables[p] {
		if strings.Contains(lower, rule.substr) {
			return rule.category
		}
	}
	return CategoryDefault
}
