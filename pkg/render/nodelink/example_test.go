package nodelink_test

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
	"github.com/matzehuels/assetgraph/pkg/assetgraph/kinds/all"
	"github.com/matzehuels/assetgraph/pkg/render/nodelink"
)

func ExampleToDOT() {
	g, _ := assetgraph.New(assetgraph.Options{
		Root:     "http://example.com/",
		Registry: all.Registry(),
		Logger:   log.New(io.Discard),
	})
	_, _ = g.NewAsset(assetgraph.Config{URL: "http://example.com/style.css", Text: "body{}"})
	_, _ = g.NewAsset(assetgraph.Config{
		URL:  "http://example.com/index.html",
		Text: `<link rel="stylesheet" href="style.css"><img src="logo.png">`,
	})

	fmt.Print(nodelink.ToDOT(g, nodelink.Options{}))
	// Output:
	// digraph G {
	//   rankdir=LR;
	//   bgcolor="transparent";
	//   node [shape=box, style="rounded,filled", fillcolor=white, fontsize=14, margin="0.2,0.1"];
	//   edge [fontsize=10, color="#555555"];
	//   ranksep=0.6;
	//   nodesep=0.3;
	//
	//   "http://example.com/style.css" [label="style.css", fillcolor="#fce7f3"];
	//   "http://example.com/index.html" [label="index.html", fillcolor="#dbeafe"];
	//   "http://example.com/logo.png" [label="logo.png", style="rounded,filled,dashed", fillcolor=lightgrey, fontcolor="#555555"];
	//
	//   "http://example.com/index.html" -> "http://example.com/style.css";
	// }
}
