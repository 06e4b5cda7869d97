package apihelpers

import (
	"fmt"
	"os"
	"sort"

	"github.com/gin-gonic/gin"
)

// WriteRoutesToFile dumps the registered routes, sorted by path, one "METHOD\tPATH" per line.
func WriteRoutesToFile(router *gin.Engine, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	routes := router.Routes()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})

	for _, route := range routes {
		if _, err := fmt.Fprintf(file, "%s\t%s\n", route.Method, route.Path); err != nil {
			return err
		}
	}
	return nil
}
