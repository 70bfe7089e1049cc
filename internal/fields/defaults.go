package fields

// DefaultConfig returns the built-in field configuration matching the
// tracker project this tool was written for. A field configuration file
// overrides it.
func DefaultConfig() Config {
	return Config{
		Fields: []FieldSpec{
			{Name: "Status", Group: "tracking", Type: "scalar"},
			{Name: "Component/s", Group: "tracking", Type: "List components"},
			{Name: "Example type", Group: "classification", Type: "scalar"},
			{Name: "PDF/UA Parts", Group: "classification", Type: "List parts"},
			{Name: "Use cases", Group: "classification", Type: "List use cases"},
			{Name: "Pass / Fail", Group: "classification", Type: "scalar"},
			{Name: "Tests", Group: "testing", Type: "text"},
			{Name: "UA Technique Tag", Group: "testing", Type: "scalar"},
			{Name: "Keywords", Group: "testing", Type: "List keywords"},
			{Name: "Matterhorn Protocol", Group: "standards", Type: "List checkpoints"},
			{Name: "WCAG 2.2 Success Criteria", Group: "standards", Type: "List criteria"},
			{Name: "WCAG 2.2 PDF Technique", Group: "standards", Type: "List techniques"},
			{Name: "Marked-content sequences", Group: "standards", Type: "List operators"},
			{Name: "Structure Types", Group: "standards", Type: "List types"},
			{Name: "PAC 2021 Checked", Group: "checkers", Type: "scalar"},
			{Name: "PAC 2024 Checked", Group: "checkers", Type: "scalar"},
			{Name: "veraPDF UA Checked", Group: "checkers", Type: "scalar"},
			{Name: "Arlington Checked", Group: "checkers", Type: "scalar"},
			{Name: "CommonLook PDF Checked", Group: "checkers", Type: "scalar"},
			{Name: "Acrobat Accessibility Checked", Group: "checkers", Type: "scalar"},
			{Name: "Acrobat Preflight UA Checked", Group: "checkers", Type: "scalar"},
			{Name: "PAC 3 Checked", Group: "checkers", Type: "scalar"},
			{Name: "Description", Group: "body", Type: "text"},
			{Name: "Labels", Group: "body", Type: "List labels"},
			{Name: "Related", Group: "links", Type: "List issues"},
			{Name: "Duplicates", Group: "links", Type: "List issues"},
			{Name: "Blocked by", Group: "links", Type: "List issues"},
		},
		Renames: []Rename{},
	}
}

// Default builds the dictionary from the built-in configuration. The
// built-in tables are known-consistent, so construction cannot fail.
func Default() *Dictionary {
	d, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return d
}
