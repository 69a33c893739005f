package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/alvarorichard/goanime-resolver/pkg/resolver"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatalf("usage: %s <anime-slug> <episode>", os.Args[0])
	}

	client, err := resolver.New(resolver.Options{})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	res, err := client.Resolve(context.Background(), resolver.Query{
		AnimeSlug: os.Args[1],
		Episode:   os.Args[2],
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Provider: %s (%d/%d)\n", res.Provider, res.Index+1, res.Total)
	fmt.Printf("Episode:  %s\n", res.EpisodeURL())
	fmt.Printf("HLS:      %v\n", res.IsHLS)
	if res.RequiresProxy {
		fmt.Printf("Headers:  %v\n", res.Headers)
	}
}
