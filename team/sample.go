package team

// SampleFetcher returns a StaticFetcher loaded with demo rosters, so the
// pipeline can run end to end without a planning backend.
func SampleFetcher() *StaticFetcher {
	return &StaticFetcher{Rosters: map[string][]Member{
		"acme-robotics": {
			{MemberID: 1, Name: "Asha Iyer", Email: "asha@acme-robotics.test", Designation: "Backend Developer", Position: "head"},
			{MemberID: 2, Name: "Marcus Webb", Email: "marcus@acme-robotics.test", Designation: "Backend Developer"},
			{MemberID: 3, Name: "Lena Fischer", Email: "lena@acme-robotics.test", Designation: "Frontend Developer"},
			{MemberID: 4, Name: "Tomas Ruiz", Email: "tomas@acme-robotics.test", Designation: "Fullstack Developer"},
			{MemberID: 5, Name: "Priya Nair", Email: "priya@acme-robotics.test", Designation: "QA Engineer"},
			{MemberID: 6, Name: "Jon Okafor", Email: "jon@acme-robotics.test", Designation: "DevOps Engineer"},
		},
		"globex": {
			{MemberID: 11, Name: "Dana Kovacs", Email: "dana@globex.test", Designation: "Backend Developer", Position: "lead"},
			{MemberID: 12, Name: "Felix Aubert", Email: "felix@globex.test", Designation: "Frontend Developer"},
			{MemberID: 13, Name: "Mina Sato", Email: "mina@globex.test", Designation: "Product Designer"},
		},
	}}
}
