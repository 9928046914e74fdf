package model

// Patch carries the attribute set a social-enrichment reply may fill in.
// Zero values mean "not provided".
type Patch struct {
	Location            string            `json:"location"`
	Occupation          string            `json:"occupation"`
	Education           string            `json:"education"`
	Income              string            `json:"income"`
	Bio                 string            `json:"bio"`
	CommunicationStyle  string            `json:"communication_style"`
	ExampleQuote        string            `json:"example_quote"`
	Interests           []string          `json:"interests"`
	Motivations         []string          `json:"motivations"`
	Barriers            []string          `json:"barriers"`
	SocialMediaProfiles map[string]string `json:"social_media_profiles"`
	ProfessionalDetails map[string]string `json:"professional_details"`
}

// Apply merges the patch onto p additively: scalars are set only when the
// patch provides a value, list entries are appended without duplicates, and
// map entries are merged per key. Nothing already on the persona is dropped.
// Returns the names of the fields that changed.
func (patch Patch) Apply(p *Persona) []string {
	var changed []string

	setStr := func(name string, dst *string, v string) {
		if v != "" && v != *dst {
			*dst = v
			changed = append(changed, name)
		}
	}
	setStr("location", &p.Location, patch.Location)
	setStr("occupation", &p.Occupation, patch.Occupation)
	setStr("education", &p.Education, patch.Education)
	setStr("income", &p.Income, patch.Income)
	setStr("bio", &p.Bio, patch.Bio)
	setStr("communication_style", &p.CommunicationStyle, patch.CommunicationStyle)
	setStr("example_quote", &p.ExampleQuote, patch.ExampleQuote)

	if merged, grew := unionList(p.Interests, patch.Interests); grew {
		p.Interests = merged
		changed = append(changed, "interests")
	}
	if merged, grew := unionList(p.Motivations, patch.Motivations); grew {
		p.Motivations = merged
		changed = append(changed, "motivations")
	}
	if merged, grew := unionList(p.Barriers, patch.Barriers); grew {
		p.Barriers = merged
		changed = append(changed, "barriers")
	}

	if merged, grew := unionMap(p.SocialMediaProfiles, patch.SocialMediaProfiles); grew {
		p.SocialMediaProfiles = merged
		changed = append(changed, "social_media_profiles")
	}
	if merged, grew := unionMap(p.ProfessionalDetails, patch.ProfessionalDetails); grew {
		p.ProfessionalDetails = merged
		changed = append(changed, "professional_details")
	}

	return changed
}

// unionList appends items from add that are not already in base.
func unionList(base, add []string) ([]string, bool) {
	if len(add) == 0 {
		return base, false
	}
	seen := make(map[string]bool, len(base))
	for _, v := range base {
		seen[v] = true
	}
	grew := false
	for _, v := range add {
		if v == "" || seen[v] {
			continue
		}
		base = append(base, v)
		seen[v] = true
		grew = true
	}
	return base, grew
}

// unionMap merges add into base; add wins on key collisions.
func unionMap(base, add map[string]string) (map[string]string, bool) {
	if len(add) == 0 {
		return base, false
	}
	if base == nil {
		base = make(map[string]string, len(add))
	}
	grew := false
	for k, v := range add {
		if v == "" {
			continue
		}
		if base[k] != v {
			base[k] = v
			grew = true
		}
	}
	return base, grew
}
