package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/agenthands/truthseeker/internal/core/model"
	"golang.org/x/sync/errgroup"
)

// readStatements returns the non-empty lines of r. Lines starting with '#' are comments.
func readStatements(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read statements: %w", err)
	}
	return out, nil
}

// checkAll runs up to limit checks at once. Results keep the order of statements.
func checkAll(ctx context.Context, c checker, statements []string, limit int) ([]model.AnalysisResult, error) {
	results := make([]model.AnalysisResult, len(statements))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, limit))
	for i, s := range statements {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.Check(gctx, s, nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
