package heatmap

// View is a plain-data snapshot of a board for the rendering boundary.
type View struct {
	Mode     Mode        `json:"mode"`
	LogScale bool        `json:"log_scale"`
	History  int         `json:"history"`
	Groups   []GroupView `json:"groups"`
}

type GroupView struct {
	Name string    `json:"name"`
	Min  float64   `json:"min"`
	Max  float64   `json:"max"`
	Rows []RowView `json:"rows"`
}

type RowView struct {
	Name      string  `json:"name"`
	Mode      Mode    `json:"mode"`
	LogScale  bool    `json:"log_scale"`
	Count     int     `json:"count"`
	LocalMin  float64 `json:"local_min"`
	LocalMax  float64 `json:"local_max"`
	GlobalMin float64 `json:"global_min"`
	GlobalMax float64 `json:"global_max"`
	Cells     []Cell  `json:"cells"`
}

// View copies the state left by the last Update.
func (b *Board) View() View {
	v := View{
		Mode:     b.settings.mode,
		LogScale: b.settings.logScale,
		History:  b.settings.history,
		Groups:   make([]GroupView, 0, len(b.groups)),
	}

	for _, g := range b.groups {
		v.Groups = append(v.Groups, g.View())
	}

	return v
}

func (g *Group) View() GroupView {
	gv := GroupView{
		Name: g.name,
		Min:  g.min,
		Max:  g.max,
		Rows: make([]RowView, 0, len(g.rows)),
	}

	for _, row := range g.rows {
		gv.Rows = append(gv.Rows, row.View())
	}

	return gv
}

func (s *Series) View() RowView {
	return RowView{
		Name:      s.name,
		Mode:      s.mode,
		LogScale:  s.logScale,
		Count:     s.count,
		LocalMin:  s.localMin,
		LocalMax:  s.localMax,
		GlobalMin: s.globalMin,
		GlobalMax: s.globalMax,
		Cells:     append([]Cell(nil), s.visible...),
	}
}
