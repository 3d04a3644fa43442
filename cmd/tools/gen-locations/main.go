// Command gen-locations generates a synthetic locations CSV for exercising
// the grid anonymiser: clustered sites plus a scattering of isolated systems.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/anonymise"
)

func main() {
	output := flag.String("o", "locations.csv", "output path")
	clusters := flag.Int("clusters", 20, "number of clustered sites")
	perCluster := flag.Int("per-cluster", 8, "systems per clustered site")
	singles := flag.Int("singles", 15, "number of isolated systems")
	spread := flag.Float64("spread", 0.02, "cluster spread in degrees")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	extent := anonymise.DefaultExtent

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("failed to create %s: %v", *output, err)
	}
	defer f.Close()

	fmt.Fprintln(f, "id,longitude,latitude")

	inExtent := func() (float64, float64) {
		lon := extent.MinLon + rng.Float64()*(extent.MaxLon-extent.MinLon)
		lat := extent.MinLat + rng.Float64()*(extent.MaxLat-extent.MinLat)
		return lon, lat
	}

	n := 0
	for c := 0; c < *clusters; c++ {
		lon, lat := inExtent()
		for s := 0; s < *perCluster; s++ {
			n++
			fmt.Fprintf(f, "sys-%d,%f,%f\n",
				n, lon+rng.NormFloat64()**spread, lat+rng.NormFloat64()**spread)
		}
	}
	for s := 0; s < *singles; s++ {
		n++
		lon, lat := inExtent()
		fmt.Fprintf(f, "sys-%d,%f,%f\n", n, lon, lat)
	}

	log.Printf("wrote %d locations to %s", n, *output)
}
