// Package inference derives product components and versions from installer
// file names and the folder paths they were published under.
//
// Installer names encode their product and release inconsistently across
// product lines and release eras, so both inferences are ordered rule lists
// where the first matching rule wins.
package inference

import "strings"

// Component labels produced by InferComponent.
const (
	ComponentInsights       = "ArcGIS Insights"
	ComponentMonitor        = "ArcGIS Monitor"
	ComponentLicenseManager = "License Manager"
	ComponentServer         = "ArcGIS Server"
	ComponentPortal         = "Portal"
	ComponentDataStore      = "Data Store"
	ComponentNotebook       = "Notebook"
	ComponentWebAdaptor     = "Web Adaptor"
	ComponentDesktop        = "Desktop"
	ComponentPro            = "Pro"
	ComponentEnterprise     = "Enterprise"
	ComponentOther          = "Other"
)

// Components lists every label InferComponent can return.
var Components = []string{
	ComponentInsights,
	ComponentMonitor,
	ComponentLicenseManager,
	ComponentServer,
	ComponentPortal,
	ComponentDataStore,
	ComponentNotebook,
	ComponentWebAdaptor,
	ComponentDesktop,
	ComponentPro,
	ComponentEnterprise,
	ComponentOther,
}

// componentRule matches against the lower-cased filename and folder path.
type componentRule struct {
	label string
	match func(name, folder string) bool
}

// componentRules is ordered: several markers are substrings of later, more
// general ones ("arcgis_server" before "server", "pro_" after "desktop").
var componentRules = []componentRule{
	{ComponentInsights, func(n, _ string) bool {
		return containsAny(n, "arcgis_insights", "insights")
	}},
	{ComponentMonitor, func(n, fp string) bool {
		return strings.Contains(n, "arcgis_monitor") || containsAny(fp, "arcgis_monitor", "arcgis monitor")
	}},
	{ComponentLicenseManager, func(n, fp string) bool {
		return containsAny(n, "license_manager", "licensemanager") ||
			containsAny(fp, "license manager", "license_manager", "licensemanager")
	}},
	{ComponentServer, func(n, _ string) bool { return strings.Contains(n, "arcgis_server") }},
	{ComponentPortal, func(n, _ string) bool { return strings.HasPrefix(n, "portal") }},
	{ComponentDataStore, func(n, _ string) bool { return strings.Contains(n, "datastore") }},
	{ComponentNotebook, func(n, _ string) bool { return strings.Contains(n, "notebook") }},
	{ComponentWebAdaptor, func(n, _ string) bool {
		return containsAny(n, "web_adaptor", "webadaptor", "web adaptor")
	}},
	{ComponentDesktop, func(n, _ string) bool { return strings.Contains(n, "desktop") }},
	{ComponentPro, func(n, _ string) bool {
		return containsAny(n, "arcgis_pro", "arcgispro", "pro_")
	}},
	{ComponentEnterprise, func(n, _ string) bool { return strings.Contains(n, "enterprise") }},
	{ComponentServer, func(n, _ string) bool { return strings.Contains(n, "server") }},
}

// InferComponent classifies an installer into one of Components, falling back
// to ComponentOther.
func InferComponent(filename, folderPath string) string {
	n := strings.ToLower(filename)
	fp := strings.ToLower(folderPath)
	for _, rule := range componentRules {
		if rule.match(n, fp) {
			return rule.label
		}
	}
	return ComponentOther
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
