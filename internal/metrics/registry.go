package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "ship"

// Registry is the single prometheus registry every metric in this package
// registers against, exposed by Handler for scraping.
var Registry = prometheus.NewRegistry()
