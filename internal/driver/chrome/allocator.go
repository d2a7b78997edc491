// internal/driver/chrome/allocator.go
package chrome

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/storefront-e2e/internal/config"
)

// launchFlag is one Chrome command line switch. A bool Value of true renders
// as a bare `--name`, false removes a default switch.
type launchFlag struct {
	Name  string
	Value any
}

// launchFlags derives the Chrome switches layered on top of chromedp's
// defaults from the browser configuration.
func launchFlags(cfg config.BrowserConfig) []launchFlag {
	var flags []launchFlag

	// DefaultExecAllocatorOptions already carries headless; drop it when a
	// visible window is requested.
	if !cfg.Headless {
		flags = append(flags, launchFlag{"headless", false})
	}

	flags = append(flags,
		launchFlag{"disable-extensions", true},
		launchFlag{"disable-gpu", cfg.Headless},
	)

	if cfg.IgnoreTLSErrors {
		flags = append(flags,
			launchFlag{"ignore-certificate-errors", true},
			launchFlag{"allow-insecure-localhost", true},
		)
	}

	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		flags = append(flags, launchFlag{"window-size", fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight)})
	}

	if cfg.UserAgent != "" {
		flags = append(flags, launchFlag{"user-agent", cfg.UserAgent})
	}

	// Custom arguments from config, `--name=value` or bare `--name`.
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if flagName == "" {
			continue
		}
		if len(parts) == 2 {
			flags = append(flags, launchFlag{flagName, parts[1]})
		} else {
			flags = append(flags, launchFlag{flagName, true})
		}
	}

	// Required when running inside containers.
	if runtime.GOOS == "linux" {
		flags = append(flags,
			launchFlag{"no-sandbox", true},
			launchFlag{"disable-dev-shm-usage", true},
			launchFlag{"disable-setuid-sandbox", true},
		)
	}

	return flags
}

// AllocatorOptions assembles the exec allocator options for a browser
// instance from the browser configuration.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range launchFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

func describeWindow(cfg config.BrowserConfig) string {
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		return "default"
	}
	return fmt.Sprintf("%dx%d", cfg.WindowWidth, cfg.WindowHeight)
}
