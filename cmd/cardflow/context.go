package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cardflow/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string
	userFlag   *string
	tokenFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag, userFlag, tokenFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
		userFlag:   userFlag,
		tokenFlag:  tokenFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// client builds an API client from flags and config. The --user flag is
// required for board and card operations since it identifies the acting user.
func (c *commandContext) client(requireUser bool) (*apiClient, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	base := strings.TrimSpace(*c.apiFlag)
	if base == "" {
		bind := strings.TrimSpace(cfg.Paths.APIBind)
		if bind == "" {
			return nil, fmt.Errorf("no API address configured; set paths.api_bind or pass --api")
		}
		base = "http://" + bind
	}

	token := strings.TrimSpace(*c.tokenFlag)
	if token == "" {
		token = strings.TrimSpace(cfg.Paths.APIToken)
	}

	userID := strings.TrimSpace(*c.userFlag)
	if requireUser && userID == "" {
		return nil, fmt.Errorf("an acting user is required; pass --user <id>")
	}

	return newAPIClient(base, token, userID), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
