package services

import (
	"fmt"
	"strings"

	"github.com/planwerk/mrp/pkg/domain/entities"
	"github.com/planwerk/mrp/pkg/domain/repositories"
)

// MaxBOMDepth caps template recursion. Exceeding it signals a structural
// error, almost always a cycle, rather than walking forever.
const MaxBOMDepth = 100

// Leveler assigns every inventory its low-level code: the maximum distance
// from a finished-good BOM root. Raw materials end up with higher codes than
// the goods consuming them, which fixes the resolution order across levels.
type Leveler struct {
	inventories repositories.InventoryRepository
	jobs        repositories.JobRepository
}

// NewLeveler creates a leveler over the given plant data
func NewLeveler(inventories repositories.InventoryRepository, jobs repositories.JobRepository) *Leveler {
	return &Leveler{inventories: inventories, jobs: jobs}
}

// LevelingResult reports the outcome of one leveling walk
type LevelingResult struct {
	MaxLevel int

	// Unleveled lists inventories the walk never reached (isolated or part of
	// a cyclic structure). They are assigned MaxLevel so they still get
	// planned, and surfaced as warnings.
	Unleveled []*entities.Inventory

	// MissingTemplates lists inventories set to generate jobs without a
	// template job to copy.
	MissingTemplates []*entities.Inventory
}

// Run recomputes all low-level codes from bill-of-material structure
func (l *Leveler) Run() (*LevelingResult, error) {
	inventories, err := l.inventories.GetAllInventories()
	if err != nil {
		return nil, fmt.Errorf("failed to list inventories: %w", err)
	}

	result := &LevelingResult{}
	for _, inv := range inventories {
		inv.LowLevelCode = entities.LevelUnset
		if inv.PlanningMode == entities.GenerateJobs && inv.TemplateJobID == "" {
			result.MissingTemplates = append(result.MissingTemplates, inv)
		}
	}

	// Every inventory with a template is a potential finished-good root.
	for _, inv := range inventories {
		if inv.TemplateJobID == "" {
			continue
		}
		if inv.LowLevelCode == entities.LevelUnset {
			inv.LowLevelCode = 0
		}
		template, err := l.jobs.GetJob(inv.TemplateJobID)
		if err != nil {
			continue // surfaced by the missing-template warning path
		}
		chain := []string{inv.Key()}
		if err := l.walk(template, inv, 0, chain); err != nil {
			return nil, err
		}
	}

	maxLevel := 0
	for _, inv := range inventories {
		if inv.LowLevelCode > maxLevel {
			maxLevel = inv.LowLevelCode
		}
	}

	// Anything still unset gets planned after everything else.
	for _, inv := range inventories {
		if inv.LowLevelCode == entities.LevelUnset {
			inv.LowLevelCode = maxLevel + 1
			result.Unleveled = append(result.Unleveled, inv)
		}
	}
	if len(result.Unleveled) > 0 {
		maxLevel++
	}
	result.MaxLevel = maxLevel
	return result, nil
}

// walk descends one template, raising each material inventory's code to at
// least depth+1 and propagating the parent's net-change flag.
func (l *Leveler) walk(template *entities.Job, parent *entities.Inventory, depth int, chain []string) error {
	if depth > MaxBOMDepth {
		return fmt.Errorf(
			"bill-of-material depth exceeds %d levels, likely a cycle: %s",
			MaxBOMDepth, strings.Join(chain, " -> "))
	}

	for _, req := range template.Requirements() {
		materials, err := l.materialInventories(req)
		if err != nil {
			return err
		}
		for _, material := range materials {
			if material.LowLevelCode < depth+1 {
				material.LowLevelCode = depth + 1
			}
			// A touched finished good retags its raw materials.
			material.NetChange = material.NetChange || parent.NetChange

			if material.TemplateJobID == "" {
				continue
			}
			childTemplate, err := l.jobs.GetJob(material.TemplateJobID)
			if err != nil {
				continue
			}
			if err := l.walk(childTemplate, material, depth+1, append(chain, material.Key())); err != nil {
				return err
			}
		}
	}
	return nil
}

// materialInventories resolves which inventories could supply a requirement:
// the one pinned inventory, or all inventories of the item.
func (l *Leveler) materialInventories(req *entities.MaterialRequirement) ([]*entities.Inventory, error) {
	if req.Warehouse != "" {
		inv, err := l.inventories.GetInventory(req.ItemID, req.Warehouse)
		if err != nil {
			return nil, nil // unknown inventory is not a structural error
		}
		return []*entities.Inventory{inv}, nil
	}
	return l.inventories.GetInventoriesForItem(req.ItemID)
}
