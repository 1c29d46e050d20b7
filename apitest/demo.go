package apitest

import "time"

// Demo accounts created by SeedDemo.
const (
	DemoAdminEmail    = "admin@example.org"
	DemoAdminPassword = "admin123"
	DemoTechEmail     = "technical@example.org"
	DemoTechPassword  = "tech123"
	DemoUserEmail     = "user@example.org"
	DemoUserPassword  = "user123"
)

// SeedDemo fills the backend with a small, consistent data set: three users
// (one per role), blog and news posts with comments, jobs (one inactive),
// resources, initiatives, partners, badges, an announcement and subscribers.
func (b *Backend) SeedDemo() {
	b.Seed("users",
		Record{"username": "Admin User", "email": DemoAdminEmail, "password": DemoAdminPassword, "role": "admin"},
		Record{"username": "Technical User", "email": DemoTechEmail, "password": DemoTechPassword, "role": "technical"},
		Record{"username": "Regular User", "email": DemoUserEmail, "password": DemoUserPassword, "role": "user"},
	)

	posts := b.Seed("blogs",
		Record{
			"title": "Why Turnout Matters", "slug": "why-turnout-matters", "type": "blog",
			"category": "The Ballot", "author": "Amina Bello", "excerpt": "Participation is the first test of legitimacy.",
			"date": "Jan 12, 2026", "featured": true, "tags": []string{"elections", "turnout"},
		},
		Record{
			"title": "Open Data for Elections", "slug": "open-data-for-elections", "type": "blog",
			"category": "Technology", "author": "Tunde Okafor", "excerpt": "Publishing results as data, not PDFs.",
			"date": "Feb 3, 2026", "tags": []string{"data"},
		},
		Record{
			"title": "Observer Mission Deployed", "slug": "observer-mission-deployed", "type": "news",
			"category": "Press Release", "author": "Press Office", "excerpt": "Observers are in all 36 states.",
			"date": "Mar 1, 2026",
		},
	)

	b.Seed("comments",
		Record{"post_id": posts[0].ID(), "post_title": posts[0].Str("title"), "author": "Chidi", "email": "chidi@example.org",
			"content": "Great piece.", "status": "approved", "date": "Jan 13, 2026"},
		Record{"post_id": posts[0].ID(), "post_title": posts[0].Str("title"), "author": "Spam Bot", "email": "bot@example.org",
			"content": "Buy now", "status": "rejected", "date": "Jan 13, 2026"},
		Record{"post_id": posts[1].ID(), "post_title": posts[1].Str("title"), "author": "Ngozi", "email": "ngozi@example.org",
			"content": "Which formats?", "status": "pending", "date": "Feb 4, 2026"},
	)

	b.Seed("jobs",
		Record{"title": "Data Analyst", "department": "Research", "location": "Abuja", "type": "Full-time",
			"requirements": []string{"SQL", "Statistics"}, "posted": "Jan 5, 2026", "is_active": true},
		Record{"title": "Field Coordinator", "department": "Programs", "location": "Lagos", "type": "Contract",
			"requirements": []string{"Driving licence"}, "posted": "Dec 1, 2025", "is_active": false},
		Record{"title": "Frontend Engineer", "department": "Technology", "location": "Remote", "type": "Full-time",
			"requirements": []string{"TypeScript"}, "posted": "Feb 10, 2026", "is_active": true},
	)

	b.Seed("resources",
		Record{"title": "2025 Election Report", "category": "Reports", "type": "PDF Report", "file_url": "/files/report-2025.pdf", "file_size": "2.4 MB"},
		Record{"title": "Observer Toolkit", "category": "Toolkits", "type": "E-Book", "file_url": "/files/toolkit.pdf", "file_size": "1.1 MB"},
	)

	b.Seed("initiatives",
		Record{"title": "Watching the Vote", "slug": "watching-the-vote", "category": "Elections", "status": "Ongoing",
			"location": "Nationwide", "activities": []string{"Parallel vote tabulation", "Observer training"}},
		Record{"title": "Ready to Run", "slug": "ready-to-run", "category": "Youth", "status": "Ongoing", "location": "Nationwide"},
	)

	b.Seed("announcements",
		Record{"title": "Applications open for the 2026 fellowship", "status": "published", "date": "Mar 2, 2026"},
		Record{"title": "Draft: annual report launch", "status": "draft"},
	)

	b.Seed("partners", Record{"name": "Civic Tech Fund", "website": "https://example.org/ctf"})
	b.Seed("badges", Record{"name": "Transparency Award", "description": "Awarded for open election data."})

	b.Seed("subscribers",
		Record{"email": "reader@example.org", "is_active": true, "subscriptions": []string{"Monthly Newsletter", "GenZ Blog Series"},
			"subscribed_at": b.now().UTC().Format(time.RFC3339)},
		Record{"email": "former@example.org", "is_active": false, "subscriptions": []string{"Monthly Newsletter"},
			"subscribed_at": "2025-01-01T00:00:00Z"},
	)

	b.Seed("hero", Record{"page": "home", "title": "Power to the", "title_highlight": "People",
		"description": "Citizens at the centre of democracy.", "cta_text": "Get involved", "cta_link": "/get-involved"})
}
