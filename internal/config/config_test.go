package config_test

import (
	"errors"
	"testing"

	"github.com/competemcgill/techgames/internal/config"
	"github.com/competemcgill/techgames/internal/domain/provision"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":3000")
			convey.So(cfg.Environment, convey.ShouldEqual, "development")
			convey.So(cfg.Production(), convey.ShouldBeFalse)
			convey.So(cfg.TemplateOwner, convey.ShouldEqual, "Compete-McGill")
			convey.So(cfg.TemplateRepo, convey.ShouldEqual, "techgames-api-challenge-template")
			convey.So(cfg.GitHubWebURL, convey.ShouldEqual, "https://github.com")
			convey.So(cfg.IdempotencyBackend, convey.ShouldEqual, "none")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Mode(t *testing.T) {
	convey.Convey("Given an environment spelled with mixed case and padding", t, func() {
		cfg := config.New()
		cfg.Environment = "  Production "

		convey.Convey("Then the fork gate and the credential check agree", func() {
			convey.So(cfg.Mode(), convey.ShouldEqual, provision.ModeProduction)
			convey.So(cfg.Mode().Production(), convey.ShouldBeTrue)
			convey.So(cfg.Production(), convey.ShouldBeTrue)

			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "github_client_id")
		})

		convey.Convey("Then credentials satisfy validation", func() {
			cfg.GitHubClientID = "id"
			cfg.GitHubClientSecret = "secret"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a staging environment", t, func() {
		cfg := config.New()
		cfg.Environment = "staging"

		convey.So(cfg.Mode().Production(), convey.ShouldBeFalse)
		convey.So(cfg.Production(), convey.ShouldBeFalse)
		convey.So(cfg.Validate(), convey.ShouldBeNil)
	})
}
