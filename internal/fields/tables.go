package fields

// displayNames maps Jira internal field keys to their display names. Keys
// without an entry fall back to the key itself.
var displayNames = map[string]string{
	"aggregateprogress":             "Σ Progress",
	"aggregatetimeestimate":         "Σ Remaining Estimate",
	"aggregatetimeoriginalestimate": "Σ Original Estimate",
	"aggregatetimespent":            "Σ Time Spent",
	"assignee":                      "Assignee",
	"attachment":                    "Attachment",
	"comment":                       "Comment",
	"components":                    "Component/s",
	"created":                       "Created",
	"creator":                       "Creator",
	"customfield_10000":             "Epic Link",
	"customfield_10001":             "Epic Status",
	"customfield_10002":             "Epic Name",
	"customfield_10003":             "Epic Color",
	"customfield_10004":             "Sprint",
	"customfield_10005":             "Rank",
	"customfield_10006":             "Story Points",
	"customfield_10100":             "Structure Types",
	"customfield_10101":             "Use cases",
	"customfield_10102":             "Example type",
	"customfield_10103":             "Reason",
	"customfield_10104":             "AT support",
	"customfield_10106":             "Pass / Fail",
	"customfield_10109":             "WCAG 2.2 PDF Technique",
	"customfield_10110":             "Matterhorn Protocol",
	"customfield_10111":             "WCAG 2.2 Success Criteria",
	"customfield_10200":             "Development",
	"customfield_10300":             "Flagged",
	"customfield_10301":             "Keywords",
	"customfield_10302":             "Tests",
	"customfield_10400":             "PDF/UA Parts",
	"customfield_10401":             "UA Technique Tag",
	"customfield_10402":             "Marked-content sequences",
	"customfield_10500":             "Team",
	"customfield_10501":             "Parent Link",
	"customfield_10502":             "Target start",
	"customfield_10503":             "Target end",
	"customfield_10504":             "Original story points",
	"customfield_10600":             "PAC 1 Checked",
	"customfield_10601":             "PAC 2021 Checked",
	"customfield_10602":             "PAC 2 Checked",
	"customfield_10603":             "PAC 3 Checked",
	"customfield_10604":             "Acrobat Accessibility Checked",
	"customfield_10605":             "Arlington Checked",
	"customfield_10606":             "CommonLook PDF Checked",
	"customfield_10607":             "LWG Tool Checked",
	"customfield_10608":             "veraPDF UA Checked",
	"customfield_10700":             "BFO PDF/UA Checked",
	"customfield_10701":             "Acrobat Preflight UA Checked",
	"customfield_10800":             "PAC 2024 Checked",
	"description":                   "Description",
	"duedate":                       "Due Date",
	"environment":                   "Environment",
	"fixVersions":                   "Fix Version/s",
	"issuekey":                      "Key",
	"issuelinks":                    "Linked Issues",
	"issuetype":                     "Issue Type",
	"labels":                        "Labels",
	"lastViewed":                    "Last Viewed",
	"priority":                      "Priority",
	"progress":                      "Progress",
	"project":                       "Project",
	"reporter":                      "Reporter",
	"resolution":                    "Resolution",
	"resolutiondate":                "Resolved",
	"security":                      "Security Level",
	"status":                        "Status",
	"subtasks":                      "Sub-Tasks",
	"summary":                       "Summary",
	"thumbnail":                     "Images",
	"timeestimate":                  "Remaining Estimate",
	"timeoriginalestimate":          "Original Estimate",
	"timespent":                     "Time Spent",
	"timetracking":                  "Time Tracking",
	"updated":                       "Updated",
	"versions":                      "Affects Version/s",
	"votes":                         "Votes",
	"watches":                       "Watchers",
	"worklog":                       "Log Work",
	"workratio":                     "Work Ratio",
}

// statusNames maps raw tracker status names to the display names used in
// the destination records.
var statusNames = map[string]string{
	"Reported":               "Reported",
	"Normalization":          "Normalization",
	"Tag Ready":              "Tag Ready",
	"Done":                   "Done",
	"Deliberation":           "Deliberation",
	"Postponed":              "Postponed",
	"Not accepted":           "Not Accepted",
	"Standardization":        "Standardization",
	"READY FOR PEER REVIEW":  "Ready For Peer Review",
	"REFINE":                 "Refine",
	"READY FOR GROUP REVIEW": "Ready For Group Review",
	"Fix Metadata":           "Fix Metadata",
	"Metadata Review":        "Metadata Review",
	"Accepted":               "Accepted",
	"Web Testing":            "Web Testing",
	"Published":              "Published",
}

// firstWordOnly lists the list fields whose item values keep only the first
// whitespace-separated word (the rest is explanatory text in the tracker).
var firstWordOnly = map[string]bool{
	"Marked-content sequences": true,
	"Structure Types":          true,
}

// spaceSeparated lists the fields whose changelog values are recorded as a
// single space-separated string rather than per-item deltas.
var spaceSeparated = map[string]bool{
	"Labels": true,
}

// linkCategories are the record fields a tracker issue link is filed
// under, by link direction and type. Their lists de-duplicate by numeric
// issue reference rather than exact string.
var linkCategories = map[string]bool{
	"Related":    true,
	"Duplicates": true,
	"Blocked by": true,
}

// reverseReplayed lists the list fields whose original value is recovered
// by replaying their delta history backwards from the current value.
var reverseReplayed = map[string]bool{
	"Component/s": true,
}
