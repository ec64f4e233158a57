package phabricator

// testingProjects maps the testing-policy project PHIDs to their tags
var testingProjects = map[string]string{
	"PHID-PROJ-h7y4cs7m2o67iczw62pp": "testing-approved",
	"PHID-PROJ-e4fcjngxcws3egiecv3r": "testing-exception-elsewhere",
	"PHID-PROJ-iciyosoekrczpf2a4emw": "testing-exception-other",
	"PHID-PROJ-zjipshabawolpkllehvg": "testing-exception-ui",
	"PHID-PROJ-cspmf33ku3kjaqtuvs7g": "testing-exception-unchanged",
}

// TestingProject returns the revision's testing-policy tag. When several tags
// are attached the last one wins and ambiguous is true; an untagged revision
// returns "".
func TestingProject(rev Revision) (tag string, ambiguous bool) {
	count := 0
	for _, phid := range rev.Attachments.Projects.ProjectPHIDs {
		if t, ok := testingProjects[phid]; ok {
			tag = t
			count++
		}
	}
	return tag, count > 1
}
