package heatmap

// Rescans reports how many full window scans the series has performed.
func (s *Series) Rescans() int { return s.rescans }
