package menuconf

import "github.com/xcaeag/menufromproject/internal/config"

// Entry pairs a descriptor with its resolved configuration. Config is nil
// for projects that failed to resolve; they are left out of the plan.
type Entry struct {
	Descriptor *config.ProjectDescriptor
	Config     *MenuProjectConfig
}

// Menu is one top-level menu and the projects shown in it. Consecutive
// projects are separated by a separator.
type Menu struct {
	Title     string
	Placement config.Placement
	Projects  []*MenuProjectConfig
}

// Plan folds resolved projects into menus in descriptor order. A project
// placed with MergeWithPrevious joins the menu of the previous project; when
// there is none it opens a new menu.
func Plan(entries []Entry) []*Menu {
	var menus []*Menu
	var previous *Menu
	for _, e := range entries {
		if e.Config == nil || e.Descriptor == nil {
			continue
		}
		if e.Descriptor.Placement == config.PlacementMergeWithPrevious && previous != nil {
			previous.Projects = append(previous.Projects, e.Config)
			continue
		}

		placement := e.Descriptor.Placement
		if placement == config.PlacementMergeWithPrevious || placement == "" {
			placement = config.PlacementNewMenu
		}
		previous = &Menu{
			Title:     e.Config.ProjectName,
			Placement: placement,
			Projects:  []*MenuProjectConfig{e.Config},
		}
		menus = append(menus, previous)
	}
	return menus
}
