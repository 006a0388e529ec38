// Command admin-token prints the bcrypt hash to use as ADMIN_TOKEN_HASH.
//
//	admin-token -token s3cret
//	echo s3cret | admin-token
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/MikeMC777/menu-orders/internal/auth"
)

func main() {
	token := flag.String("token", "", "admin token to hash (read from stdin when empty)")
	flag.Parse()

	if *token == "" {
		sc := bufio.NewScanner(os.Stdin)
		if sc.Scan() {
			*token = sc.Text()
		}
		if err := sc.Err(); err != nil {
			log.Fatalf("read token: %v", err)
		}
	}
	hash, err := auth.HashToken(*token)
	if err != nil {
		log.Fatal(err)
	}
	// Single quotes keep godotenv and shells from expanding the $ segments.
	fmt.Printf("ADMIN_TOKEN_HASH='%s'\n", hash)
}
