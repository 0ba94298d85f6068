// Package charts renders the pipeline's visualizations as standalone HTML
// files using go-echarts.
//
// Four charts are produced from the merged dataset's groupings: a monthly
// revenue line, a horizontal ranking of the top products by units sold, a
// revenue-by-category bar chart and a revenue-by-region pie. Rendering never
// blocks or opens windows; Renderer.RenderAll returns the written artifacts
// and RenderTo writes a single chart to any io.Writer.
package charts
