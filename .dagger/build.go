package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/flowstream/internal/dagger"
)

// Build and return directory of flowstream binaries
func (f *Flowstream) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	gooses := []string{"linux"}
	goarches := []string{"amd64", "arm64"}

	outputs := dag.Directory()

	// go-sqlite3 needs cgo, so each target builds with its own zig toolchain.
	golang := f.goContainer().
		WithExec([]string{"sh", "-c", "curl -sSL https://ziglang.org/download/0.13.0/zig-linux-x86_64-0.13.0.tar.xz | tar -xJ -C /opt"}).
		WithEnvVariable("PATH", "/opt/zig-linux-x86_64-0.13.0:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true})

	for _, goos := range gooses {
		for _, goarch := range goarches {
			path := fmt.Sprintf("%s/%s/", goos, goarch)

			build := golang.
				WithEnvVariable("GOOS", goos).
				WithEnvVariable("GOARCH", goarch).
				WithEnvVariable("CC", fmt.Sprintf("zig cc -target %s-%s", zigArch(goarch), zigOS(goos))).
				WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/flowstream"})

			outputs = outputs.WithDirectory(path, build.Directory(path))
		}
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (f *Flowstream) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/flowstream/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/flowstream/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/flowstream/pkg/utils.Buildtime=%s'", time.Now()),
	}

	return f.Build(ctx, strings.Join(ldflags, " "))
}

func zigArch(goarch string) string {
	if goarch == "arm64" {
		return "aarch64"
	}
	return "x86_64"
}

func zigOS(goos string) string {
	return goos + "-gnu"
}
