// Package museumrag is a Go client for the museumrag question-answering API.
//
//	client, _ := museumrag.New("http://localhost:8501", museumrag.WithAPIKey(token))
//	ans, err := client.Ask(ctx, "Where is the Dalí Museum located?", 3)
//	if errors.Is(err, museumrag.ErrRetrieval) {
//	    // index or embedding provider unavailable
//	}
//	fmt.Println(ans.Answer)
package museumrag
