// Package assets provides the stylesheet and HTML templates of a rendered
// document.
//
// A Resolver looks in an optional directory first and falls back to the
// copies embedded in the binary:
//
//	{basePath}/
//	├── styles/
//	│   └── {name}.css
//	└── templates/
//	    └── {name}/
//	        ├── cover.html    # cover page body
//	        ├── header.html   # Chrome header template
//	        └── footer.html   # Chrome footer template
//
// Names are validated so they cannot climb out of basePath, and symlinks
// are resolved before the containment check.
package assets
