package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/ygfweb/imgkit/imagex"
)

var (
	concurrency = flag.Int("c", 10, "Concurrency")
	file        = flag.String("f", "", "Url file; one url per line")
	host        = flag.String("host", "http://localhost:4446", "Server to siege when no url file is given")
	requests    = flag.Int("n", 200, "Number of generated requests")
)

// fetch reports success only when the response is a 200 carrying an image
// that actually decodes.
func fetch(url string, c chan bool) {
	status := false
	defer func() { c <- status }()

	resp, err := http.Get(url)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		fmt.Println(resp.StatusCode, url)
		return
	}

	im, err := imagex.New(body)
	if err != nil || !im.IsReallyImage() {
		fmt.Println("not an image:", url)
		return
	}
	status = true
}

func readFile(filename string) (result []string, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			result = append(result, line)
		}
	}
	return result, sc.Err()
}

// generate alternates captcha and qr requests against the server.
func generate(base string, n int) []string {
	urls := make([]string, n)
	for i := range urls {
		if i%2 == 0 {
			urls[i] = fmt.Sprintf("%s/captcha?w=%d&h=40", base, 100+i%60)
		} else {
			urls[i] = fmt.Sprintf("%s/qr?text=siege-%d&w=300&h=300", base, i)
		}
	}
	return urls
}

func main() {
	flag.Parse()

	var urls []string
	var err error

	if *file != "" {
		urls, err = readFile(*file)
		if err != nil {
			fmt.Println(err)
			return
		}
	} else {
		urls = generate(strings.TrimRight(*host, "/"), *requests)
	}

	fmt.Println(*concurrency, "concurrent fetchers...")
	runtime.GOMAXPROCS(runtime.NumCPU())

	start := time.Now()

	success, fail := 0, 0

	result := make(chan bool)
	tokenChan := make(chan bool, *concurrency)

	for i := 0; i < *concurrency; i++ {
		tokenChan <- true
	}

	for _, url := range urls {
		go func(u string) {
			<-tokenChan
			defer func() { tokenChan <- true }()

			fetch(u, result)
		}(url)
	}

	for i := 0; i < len(urls); i++ {
		if <-result {
			success++
		} else {
			fail++
		}
	}

	fmt.Println("Total:", success+fail)
	fmt.Println("Success:", success)
	fmt.Println("Fail:", fail)
	fmt.Printf("Finished in %v\n", time.Since(start))
}
