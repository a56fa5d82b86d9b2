package config

import (
	"context"
	"fmt"

	"gopkg.in/ini.v1"
)

// GroupRegistry maps research groups to the PI accounts they own.
type GroupRegistry interface {
	GetGroups(ctx context.Context) ([]string, error)
	GetPIs(ctx context.Context, group string) ([]string, error)
}

type iniGroupRegistry struct {
	cfg *ini.File
}

// NewGroupRegistry reads an ini file with one section per group:
//
//	[dmml]
//	pis = kalousis, other
func NewGroupRegistry(path string) (GroupRegistry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load group registry: %w", err)
	}
	return &iniGroupRegistry{cfg: cfg}, nil
}

func (r *iniGroupRegistry) GetGroups(_ context.Context) ([]string, error) {
	var groups []string
	for _, section := range r.cfg.Sections() {
		if section.HasKey("pis") {
			groups = append(groups, section.Name())
		}
	}
	return groups, nil
}

func (r *iniGroupRegistry) GetPIs(_ context.Context, group string) ([]string, error) {
	section, err := r.cfg.GetSection(group)
	if err != nil {
		return nil, fmt.Errorf("group %s not found", group)
	}

	var pis []string
	for _, pi := range section.Key("pis").Strings(",") {
		if pi != "" {
			pis = append(pis, pi)
		}
	}
	return pis, nil
}
