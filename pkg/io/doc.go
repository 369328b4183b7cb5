// Package io provides JSON export and import for asset graphs.
//
// # JSON Format
//
// A snapshot lists every asset as a node and every relation as an edge:
//
//	{
//	  "root": "https://example.com/",
//	  "nodes": [
//	    {"id": "2f1c...", "url": "https://example.com/index.html", "type": "Html", "loaded": true},
//	    {"id": "9a7e...", "url": "https://example.com/style.css", "type": "Css", "loaded": true}
//	  ],
//	  "edges": [
//	    {"from": "2f1c...", "to": "9a7e...", "type": "HtmlStyle", "href": "style.css"}
//	  ]
//	}
//
// Node ids are the asset ids of the exported graph and are only stable
// within one run. Inline assets have no url and their incoming edge no href.
//
// # Export
//
// Use [ExportJSON] to write a graph to a file, or [WriteJSON] to write to any
// io.Writer. [FromGraph] returns the snapshot without encoding it.
//
// # Import
//
// [ReadJSON] and [ImportJSON] decode a snapshot and check that node ids are
// unique and that every edge connects known nodes. A snapshot is a record
// of structure only; it carries no content and cannot be loaded back into
// a graph.
package io
