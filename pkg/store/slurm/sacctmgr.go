package slurm

import (
	"context"
	"fmt"
	"strings"
)

const defaultAssocCluster = "Baobab"

// AccountResolver finds the accounting accounts (PIs) a user belongs to.
type AccountResolver interface {
	ForUser(ctx context.Context, user string) ([]string, error)
}

type accountResolver struct {
	runner  Runner
	cluster string
}

func NewAccountResolver(runner Runner, cluster string) AccountResolver {
	if cluster == "" {
		cluster = defaultAssocCluster
	}
	return &accountResolver{runner: runner, cluster: cluster}
}

// ForUser returns the default account first followed by the other accounts.
func (r *accountResolver) ForUser(ctx context.Context, user string) ([]string, error) {
	out, err := r.runner.Run(ctx, "sacctmgr",
		"show", "User", "user="+user, "-s",
		"Format=user,DefaultAccount,Account",
		"cluster="+r.cluster,
		"--parsable2",
	)
	if err != nil {
		return nil, fmt.Errorf("sacctmgr for user %s: %w", user, err)
	}
	return parseAssociations(out), nil
}

func parseAssociations(out string) []string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return nil
	}

	defIdx, accIdx := -1, -1
	for i, name := range strings.Split(lines[0], "|") {
		switch strings.TrimSpace(name) {
		case "Def Acct":
			defIdx = i
		case "Account":
			accIdx = i
		}
	}

	var accounts []string
	seen := map[string]bool{}
	add := func(fields []string, idx int) {
		if idx < 0 || idx >= len(fields) {
			return
		}
		account := strings.TrimSpace(fields[idx])
		if account == "" || seen[account] {
			return
		}
		seen[account] = true
		accounts = append(accounts, account)
	}
	for _, line := range lines[1:] {
		fields := strings.Split(line, "|")
		add(fields, defIdx)
		add(fields, accIdx)
	}
	return accounts
}
