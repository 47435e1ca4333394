package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ccccccmd/nacos-config-sdk/client"
	"github.com/ccccccmd/nacos-config-sdk/config"
)

func main() {
	ctx := context.Background()

	c, err := client.New(
		config.WithServerAddresses("127.0.0.1:8848"),
		config.WithNamespace("public"),
		config.WithCredentials("nacos", "nacos"),
	)
	if err != nil {
		log.Fatalf("failed to build client: %v", err)
	}
	defer c.Stop()

	ok, err := c.PublishConfigAsync(ctx, "app.yaml", "DEFAULT_GROUP", "greeting: hello", "yaml")
	if err != nil {
		log.Fatalf("publish failed: %v", err)
	}
	fmt.Printf("publish ok=%v\n", ok)

	content, found, err := c.GetConfigAsync(ctx, "app.yaml", "DEFAULT_GROUP")
	if err != nil {
		log.Fatalf("get failed: %v", err)
	}
	fmt.Printf("found=%v content=%q\n", found, content)

	handle, err := c.Subscribe("app.yaml", "DEFAULT_GROUP", func(event config.ConfigChangedEvent) {
		fmt.Printf("config changed: %s/%s -> %q\n", event.Key.DataID, event.Key.Group, event.NewContent)
	})
	if err != nil {
		log.Fatalf("subscribe failed: %v", err)
	}
	defer handle.Unsubscribe()

	time.Sleep(5 * time.Second)
}
