package cli

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/spice-categorizer/internal/engine"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// SeedProgress returns a seeder callback that draws a progress bar on w.
// The bar is created on the first callback, once the total is known.
func SeedProgress(w io.Writer) engine.ProgressFunc {
	var bar *progressbar.ProgressBar

	return func(done, total int, category model.Category) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("Seeding rule kits"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(30),
				progressbar.OptionClearOnFinish(),
			)
		}
		bar.Describe("Seeding " + category.Label())
		_ = bar.Set(done)
		if done == total {
			_ = bar.Finish()
		}
	}
}
