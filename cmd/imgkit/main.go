package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ygfweb/imgkit"
	"github.com/ygfweb/imgkit/captcha"
	"github.com/ygfweb/imgkit/imagex"
	"github.com/ygfweb/imgkit/qr"
)

type command struct {
	usage string
	run   func(args []string) error
}

var commands = map[string]command{
	"resize":   {"-in FILE -out FILE -w N -h N [-keep]", resize},
	"crop":     {"-in FILE -out FILE -w N -h N [-q N]", crop},
	"captcha":  {"-out FILE [-w N -h N] [-code TEXT | -n N]", newCaptcha},
	"qr":       {"-text TEXT -out FILE [-w N -h N -margin N -logo FILE]", newQR},
	"qrdecode": {"-in FILE", qrDecode},
	"info":     {"-in FILE", info},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	if os.Args[1] == "-v" || os.Args[1] == "version" {
		fmt.Printf("imgkit v%s (%s)\n", imgkit.VERSION, imagex.Engine.Version())
		return
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(2)
	}
	if err := cmd.run(os.Args[2:]); err != nil {
		logrus.Fatalf("%s: %s", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: imgkit <command> [flags]")
	for _, name := range []string{"resize", "crop", "captcha", "qr", "qrdecode", "info"} {
		fmt.Fprintf(os.Stderr, "  %-9s %s\n", name, commands[name].usage)
	}
}

func resize(args []string) error {
	flags := flag.NewFlagSet("resize", flag.ExitOnError)
	in := flags.String("in", "", "source image")
	out := flags.String("out", "", "destination file")
	w := flags.Int("w", 0, "max width")
	h := flags.Int("h", 0, "max height")
	keep := flags.Bool("keep", true, "keep aspect ratio")
	flags.Parse(args)

	im, err := imagex.LoadFile(*in)
	if err != nil {
		return err
	}
	im, err = im.Resize(*w, *h, *keep)
	if err != nil {
		return err
	}
	return im.WriteToFile(*out)
}

func crop(args []string) error {
	flags := flag.NewFlagSet("crop", flag.ExitOnError)
	in := flags.String("in", "", "source image")
	out := flags.String("out", "", "destination file")
	w := flags.Int("w", 0, "crop width")
	h := flags.Int("h", 0, "crop height")
	q := flags.Int("q", imgkit.DefaultQuality, "jpeg quality (0-100)")
	flags.Parse(args)

	im, err := imagex.LoadFile(*in)
	if err != nil {
		return err
	}
	im, err = im.Crop(*w, *h, *q)
	if err != nil {
		return err
	}
	return im.WriteToFile(*out)
}

func newCaptcha(args []string) error {
	flags := flag.NewFlagSet("captcha", flag.ExitOnError)
	out := flags.String("out", "", "destination png")
	w := flags.Int("w", captcha.DefaultWidth, "width")
	h := flags.Int("h", captcha.DefaultHeight, "height")
	code := flags.String("code", "", "text to draw; random when empty")
	n := flags.Int("n", 4, "random code length")
	flags.Parse(args)

	if *code == "" {
		*code = captcha.RandomCode(*n, nil)
	}
	im, err := imagex.NewVerifyCode(*code, *h, *w)
	if err != nil {
		return err
	}
	if err := im.WriteToFile(*out); err != nil {
		return err
	}
	fmt.Println(*code)
	return nil
}

func newQR(args []string) error {
	flags := flag.NewFlagSet("qr", flag.ExitOnError)
	text := flags.String("text", "", "content to encode")
	out := flags.String("out", "", "destination jpeg")
	w := flags.Int("w", qr.DefaultWidth, "width")
	h := flags.Int("h", qr.DefaultHeight, "height")
	margin := flags.Int("margin", 0, "quiet zone in modules")
	logo := flags.String("logo", "", "logo image to overlay")
	flags.Parse(args)

	opts := qr.DefaultOptions()
	opts.Width, opts.Height, opts.Margin = *w, *h, *margin
	if *logo != "" {
		lg, err := imagex.LoadFile(*logo)
		if err != nil {
			return err
		}
		opts.Logo = lg.Data()
	}

	im, err := imagex.NewQRCode(*text, opts)
	if err != nil {
		return err
	}
	if im.IsEmpty() {
		return fmt.Errorf("nothing to encode")
	}
	return im.WriteToFile(*out)
}

func qrDecode(args []string) error {
	flags := flag.NewFlagSet("qrdecode", flag.ExitOnError)
	in := flags.String("in", "", "image containing a qr code")
	flags.Parse(args)

	im, err := imagex.LoadFile(*in)
	if err != nil {
		return err
	}
	fmt.Println(im.QRText())
	return nil
}

func info(args []string) error {
	flags := flag.NewFlagSet("info", flag.ExitOnError)
	in := flags.String("in", "", "image file")
	flags.Parse(args)

	im, err := imagex.LoadFile(*in)
	if err != nil {
		return err
	}
	imfo, err := im.Info()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(imfo)
}
