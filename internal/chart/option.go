package chart

import "stockDash/internal/series"

// Option ECharts 配置的 JSON 形态，只包含 K 线图用到的部分。
type Option struct {
	Animation   bool          `json:"animation"`
	Legend      Legend        `json:"legend"`
	Tooltip     Tooltip       `json:"tooltip"`
	AxisPointer AxisPointer   `json:"axisPointer"`
	Toolbox     Toolbox       `json:"toolbox"`
	VisualMap   []VisualMap   `json:"visualMap"`
	Grid        []Grid        `json:"grid"`
	XAxis       []Axis        `json:"xAxis"`
	YAxis       []Axis        `json:"yAxis"`
	DataZoom    []DataZoom    `json:"dataZoom"`
	Series      []SeriesEntry `json:"series"`
}

type Legend struct {
	Bottom int      `json:"bottom"`
	Left   string   `json:"left"`
	Data   []string `json:"data"`
}

type Tooltip struct {
	Trigger     string            `json:"trigger"`
	AxisPointer map[string]string `json:"axisPointer"`
}

type AxisPointer struct {
	Link  []map[string]string `json:"link"`
	Label map[string]string   `json:"label"`
}

type Toolbox struct {
	Right   int            `json:"right"`
	Feature map[string]any `json:"feature"`
}

// VisualMap 按量柱第三维（方向）着色。
type VisualMap struct {
	Show        bool          `json:"show"`
	SeriesIndex int           `json:"seriesIndex"`
	Dimension   int           `json:"dimension"`
	Pieces      []VisualPiece `json:"pieces"`
}

type VisualPiece struct {
	Value int    `json:"value"`
	Color string `json:"color"`
}

type Grid struct {
	Left   string `json:"left"`
	Right  string `json:"right"`
	Top    string `json:"top,omitempty"`
	Height string `json:"height"`
}

type Axis struct {
	Type        string         `json:"type,omitempty"`
	GridIndex   int            `json:"gridIndex"`
	Data        []string       `json:"data,omitempty"`
	Scale       bool           `json:"scale"`
	BoundaryGap *bool          `json:"boundaryGap,omitempty"`
	SplitNumber int            `json:"splitNumber,omitempty"`
	Min         string         `json:"min,omitempty"`
	Max         string         `json:"max,omitempty"`
	AxisLabel   map[string]any `json:"axisLabel,omitempty"`
	AxisLine    map[string]any `json:"axisLine,omitempty"`
	AxisTick    map[string]any `json:"axisTick,omitempty"`
	SplitLine   map[string]any `json:"splitLine,omitempty"`
	SplitArea   map[string]any `json:"splitArea,omitempty"`
}

type DataZoom struct {
	Type       string  `json:"type"`
	Show       bool    `json:"show,omitempty"`
	XAxisIndex []int   `json:"xAxisIndex"`
	Top        string  `json:"top,omitempty"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
}

// SeriesEntry 一条系列；Data 依类型为 []series.OHLC、[]series.MAValue 或 []series.VolumeBar。
type SeriesEntry struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Data       any            `json:"data"`
	XAxisIndex int            `json:"xAxisIndex,omitempty"`
	YAxisIndex int            `json:"yAxisIndex,omitempty"`
	Smooth     bool           `json:"smooth,omitempty"`
	ShowSymbol *bool          `json:"showSymbol,omitempty"`
	ItemStyle  map[string]any `json:"itemStyle,omitempty"`
	LineStyle  map[string]any `json:"lineStyle,omitempty"`
}

// 系列名称
const (
	CandleName = "日K"
	VolumeName = "Volume"
)

var (
	hidden = map[string]any{"show": false}
	falsy  = false
)

func buildOption(s *series.Normalized, mas []series.MA, theme Theme, zoomBars int) *Option {
	legend := make([]string, 0, len(mas)+1)
	legend = append(legend, CandleName)
	for _, m := range mas {
		legend = append(legend, m.Name())
	}

	entries := make([]SeriesEntry, 0, len(mas)+2)
	entries = append(entries, SeriesEntry{
		Name: CandleName,
		Type: "candlestick",
		Data: s.OHLC,
		ItemStyle: map[string]any{
			"color": theme.Up, "color0": theme.Down,
			"borderColor": theme.Up, "borderColor0": theme.Down,
		},
	})
	for _, m := range mas {
		entries = append(entries, SeriesEntry{
			Name:       m.Name(),
			Type:       "line",
			Data:       m.Values,
			Smooth:     true,
			ShowSymbol: &falsy,
			LineStyle:  map[string]any{"opacity": 0.7, "width": 1},
		})
	}
	volumeIndex := len(entries)
	entries = append(entries, SeriesEntry{
		Name:       VolumeName,
		Type:       "bar",
		Data:       s.Volumes,
		XAxisIndex: 1,
		YAxisIndex: 1,
	})

	start := zoomStart(s.Len(), zoomBars)
	return &Option{
		Legend:  Legend{Bottom: 10, Left: "center", Data: legend},
		Tooltip: Tooltip{Trigger: "axis", AxisPointer: map[string]string{"type": "cross"}},
		AxisPointer: AxisPointer{
			Link:  []map[string]string{{"xAxisIndex": "all"}},
			Label: map[string]string{"backgroundColor": "#777"},
		},
		Toolbox: Toolbox{Right: 20, Feature: map[string]any{
			"dataZoom":    map[string]any{"yAxisIndex": false},
			"brush":       map[string]any{"type": []string{"lineX", "clear"}},
			"restore":     map[string]any{},
			"saveAsImage": map[string]any{},
		}},
		VisualMap: []VisualMap{{
			SeriesIndex: volumeIndex,
			Dimension:   2,
			Pieces: []VisualPiece{
				{Value: series.SignUp, Color: theme.Up},
				{Value: series.SignDown, Color: theme.Down},
			},
		}},
		Grid: []Grid{
			{Left: "8%", Right: "8%", Height: "50%"},
			{Left: "8%", Right: "8%", Top: "65%", Height: "16%"},
		},
		XAxis: []Axis{
			categoryAxis(0, s.Dates, false),
			categoryAxis(1, s.Dates, true),
		},
		YAxis: []Axis{
			{Scale: true, SplitArea: hidden, AxisLabel: map[string]any{"inside": false}},
			{Scale: true, GridIndex: 1, SplitNumber: 2, AxisLabel: hidden, AxisLine: hidden, AxisTick: hidden, SplitLine: hidden},
		},
		DataZoom: []DataZoom{
			{Type: "inside", XAxisIndex: []int{0, 1}, Start: start, End: 100},
			{Type: "slider", Show: true, XAxisIndex: []int{0, 1}, Top: "85%", Start: start, End: 100},
		},
		Series: entries,
	}
}

func categoryAxis(grid int, dates []string, showLabel bool) Axis {
	return Axis{
		Type:        "category",
		GridIndex:   grid,
		Data:        dates,
		Scale:       true,
		BoundaryGap: &falsy,
		Min:         "dataMin",
		Max:         "dataMax",
		AxisLine:    map[string]any{"onZero": false},
		AxisTick:    hidden,
		SplitLine:   hidden,
		AxisLabel:   map[string]any{"show": showLabel},
	}
}

// zoomStart 默认视图覆盖最后 zoomBars 根（百分比起点）。
func zoomStart(n, zoomBars int) float64 {
	if n <= 0 || zoomBars <= 0 || zoomBars >= n {
		return 0
	}
	return 100 - float64(zoomBars)/float64(n)*100
}
