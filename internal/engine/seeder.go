package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/pattern"
	"github.com/Veraticus/spice-categorizer/internal/service"
)

// Seeder loads the built-in kits into storage as global rules, plus
// household-owned rules for custom categories that map to a kit.
type Seeder struct {
	storage  service.Storage
	logger   *slog.Logger
	progress ProgressFunc
	kits     func() ([]pattern.Kit, error)
	config   Config
}

// NewSeeder creates a seeder over the embedded kits.
func NewSeeder(storage service.Storage, config Config, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		storage: storage,
		logger:  logger,
		kits:    pattern.Kits,
		config:  config.withDefaults(),
	}
}

// OnProgress registers a callback invoked after each category.
func (s *Seeder) OnProgress(fn ProgressFunc) {
	s.progress = fn
}

// householdKitBoost lifts kit rules seeded for a custom category above the
// global rule with the same pattern. They stay below authored household rules.
const householdKitBoost = 100

// Seed validates the kits, then upserts the kit of every global category as
// global rules and the kit of every custom category as rules owned by that
// category's household. Custom categories whose label maps to no kit are
// skipped. An undersized kit aborts before anything is written.
// Per-category failures are recorded in the report and do not stop the run.
func (s *Seeder) Seed(ctx context.Context) (*model.SeedReport, error) {
	kits, err := s.kits()
	if err != nil {
		return nil, fmt.Errorf("failed to load rule kits: %w", err)
	}
	if err := pattern.ValidateKits(kits, s.config.MinKitPatterns); err != nil {
		return nil, err
	}

	categories, err := s.storage.GetGlobalCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	custom, err := s.storage.GetCustomCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load custom categories: %w", err)
	}
	categories = append(categories, custom...)

	report := &model.SeedReport{Errors: []string{}}
	for i, cat := range categories {
		inserted, err := s.seedCategory(ctx, cat, kits)
		report.CategoriesProcessed++
		report.RulesInserted += inserted
		if err != nil {
			s.logger.Warn("Failed to seed category", "category", cat.ID, "household", cat.HouseholdID, "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", cat.ID, err))
		}
		if s.progress != nil {
			s.progress(i+1, len(categories), cat)
		}
	}

	s.logger.Info("Seeding complete",
		"categories", report.CategoriesProcessed,
		"custom", len(custom),
		"rules_inserted", report.RulesInserted,
		"errors", len(report.Errors))

	return report, nil
}

func (s *Seeder) seedCategory(ctx context.Context, cat model.Category, kits []pattern.Kit) (int, error) {
	kit := pattern.InferKit(cat.Label(), kits)
	if !cat.IsGlobal() && kit.Category == model.CategoryOther {
		s.logger.Debug("No kit for custom category", "category", cat.ID, "name", cat.Name)
		return 0, nil
	}
	if kit.Size() == 0 {
		return 0, fmt.Errorf("no kit for inferred category %q", kit.Category)
	}

	inserted := 0
	for _, rule := range pattern.RulesFromKit(kit) {
		// Rules point at the stored category, which may differ from the kit slug.
		rule.Category = cat.ID
		rule.HouseholdID = cat.HouseholdID
		if !cat.IsGlobal() {
			rule.Priority += householdKitBoost
		}
		created, err := s.storage.UpsertKitRule(ctx, &rule)
		if err != nil {
			return inserted, fmt.Errorf("failed to upsert rule %q: %w", rule.Pattern, err)
		}
		if created {
			inserted++
		}
	}

	s.logger.Debug("Seeded category",
		"category", cat.ID,
		"household", cat.HouseholdID,
		"kit", kit.Category,
		"patterns", kit.Size(),
		"inserted", inserted)

	return inserted, nil
}
