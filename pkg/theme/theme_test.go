package theme

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cloudplot/cloudplot/pkg/resource"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		provider resource.Provider
		typ      string
		want     Category
	}{
		{resource.Azure, "Microsoft.Compute/virtualMachines", CategoryCompute},
		{resource.Azure, "Microsoft.Storage/storageAccounts", CategoryStorage},
		{resource.Azure, "Microsoft.Sql/servers", CategoryDatabase},
		{resource.Azure, "Microsoft.KeyVault/vaults", CategorySecurity},
		{resource.Azure, "Microsoft.Network/virtualNetworks", CategoryNetwork},
		{resource.AWS, "AWS::RDS::DBInstance", CategoryDatabase},
		{resource.AWS, "AWS::EC2::Instance", CategoryCompute},
		{resource.AWS, "AWS::EC2::VPC", CategoryNetwork},
		{resource.GCP, "compute.googleapis.com/Instance", CategoryCompute},
		{resource.GCP, "compute.googleapis.com/Disk", CategoryStorage},
		{resource.Azure, "Microsoft.Unknown/widgets", CategoryDefault},
		{resource.Provider("oracle"), "anything", CategoryDefault},
	}
	for _, tt := range tests {
		if got := Classify(tt.provider, tt.typ); got != tt.want {
			t.Errorf("Classify(%s, %s) = %s, want %s", tt.provider, tt.typ, got, tt.want)
		}
	}
}

func TestClassifyOrderSQLBeforeStorage(t *testing.T) {
	// microsoft.sql must win over any later, more general match.
	if got := Classify(resource.Azure, "Microsoft.Sql/servers/databases"); got != CategoryDatabase {
		t.Errorf("Classify = %s, want database", got)
	}
}

func TestSetResolve(t *testing.T) {
	themes := Builtin()

	vm := resource.Resource{ID: "vm", Type: "Microsoft.Compute/virtualMachines", Provider: resource.Azure}
	style, err := themes.Resolve(vm, DefaultName)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if style.Shape != "box" || style.Color == "" {
		t.Errorf("compute style = %+v", style)
	}

	unknown := resource.Resource{ID: "x", Type: "Vendor.Unknown/things", Provider: resource.Azure}
	fallback, err := themes.Resolve(unknown, DefaultName)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if fallback != defaultTheme.Styles[CategoryDefault] {
		t.Errorf("fallback style = %+v", fallback)
	}
}

func TestSetResolveUnknownTheme(t *testing.T) {
	_, err := Builtin().Resolve(resource.Resource{}, "neon")
	var utErr *UnknownThemeError
	if !errors.As(err, &utErr) {
		t.Fatalf("error = %v, want *UnknownThemeError", err)
	}
	if utErr.Name != "neon" {
		t.Errorf("Name = %q, want neon", utErr.Name)
	}
}

func TestSetWith(t *testing.T) {
	base := Builtin()
	custom := Theme{Name: "corporate", Styles: map[Category]Style{
		CategoryDefault: {Color: "#0052CC", Icon: "box", Shape: "box"},
	}}

	extended := base.With(custom)
	if !reflect.DeepEqual(extended.Names(), []string{"corporate", "dark", "default"}) {
		t.Errorf("Names = %v", extended.Names())
	}
	// The receiver is unchanged.
	if len(base.Names()) != 2 {
		t.Errorf("With mutated the receiver: %v", base.Names())
	}

	// Same-name themes override.
	override := Theme{Name: DefaultName, Styles: map[Category]Style{
		CategoryDefault: {Color: "#000000"},
	}}
	replaced := base.With(override)
	got, _ := replaced.Theme(DefaultName)
	if got.Styles[CategoryDefault].Color != "#000000" {
		t.Errorf("override not applied: %+v", got)
	}
}

func TestParseTOML(t *testing.T) {
	data := []byte(`
[themes.corporate.compute]
color = "#0052CC"
icon = "server"
shape = "box"

[themes.corporate.default]
color = "#5E6C84"
icon = "box"
shape = "box"
`)
	themes, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(themes) != 1 || themes[0].Name != "corporate" {
		t.Fatalf("themes = %+v", themes)
	}
	if themes[0].Styles[CategoryCompute].Color != "#0052CC" {
		t.Errorf("compute style = %+v", themes[0].Styles[CategoryCompute])
	}
}

func TestParseTOMLInvalidThemeName(t *testing.T) {
	data := []byte(`
[themes."Bad Name!".default]
color = "#FFFFFF"
`)
	if _, err := Parse(data); err == nil {
		t.Fatal("expected error for invalid theme name")
	}
}

func TestParseTOMLUnknownCategory(t *testing.T) {
	data := []byte(`
[themes.bad.blockchain]
color = "#FFFFFF"
`)
	if _, err := Parse(data); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themes.toml")
	content := `
[themes.minimal.default]
color = "#333333"
icon = "box"
shape = "box"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	themes, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(themes) != 1 || themes[0].Name != "minimal" {
		t.Errorf("themes = %+v", themes)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
