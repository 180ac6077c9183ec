package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"

	"github.com/thehashton/alterun/internal/logger"
)

// SeedDefaultPolicies ensures that the application has a baseline set of
// authorization rules. It checks if each default policy exists before adding
// it, making the operation idempotent and safe to run on every start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	// Anonymous visitors can browse the public codex; editors (any logged-in
	// user) additionally reach the admin dashboard and every mutating route.
	// There is no finer-grained ownership model: every editor may edit
	// everything.
	policies := [][]string{
		{"anonymous", "/", "GET"},
		{"anonymous", "/codex", "GET"},
		{"anonymous", "/codex/*", "GET"},
		{"anonymous", "/categories", "GET"},
		{"anonymous", "/robots.txt", "GET"},
		{"anonymous", "/sitemap.xml", "GET"},
		{"anonymous", "/static/*", "GET"},
		{"anonymous", "/auth/login", "GET"},
		{"anonymous", "/auth/callback", "GET"},

		{"editor", "/admin", "GET"},
		{"editor", "/admin/*", "GET"},
		{"editor", "/admin/*", "POST"},
		{"editor", "/auth/logout", "POST"},
	}
	for _, p := range policies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	// Editors inherit everything anonymous visitors can do.
	if has, _ := e.HasRoleForUser("editor", "anonymous"); !has {
		if _, err := e.AddRoleForUser("editor", "anonymous"); err != nil {
			log.Error(err, "Failed to add role 'editor' -> 'anonymous'")
		}
	}
	log.Info("Policy seeding complete.")
}
