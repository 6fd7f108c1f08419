// Утилита экспорта: выгружает партию из MongoDB и рисует PDF-протокол
// с финальной доской, списком собранных квадратов и счётом.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"metasquares/internal/domain/game"
)

func main() {
	mongoUri := flag.String("mongo", "mongodb://localhost:27017", "MongoDB URI")
	gameKey := flag.String("game", "", "game key to export")
	output := flag.String("out", "game_report.pdf", "output PDF path")
	flag.Parse()

	if *gameKey == "" {
		fmt.Println("укажите ключ игры: -game <key>")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoUri))
	if err != nil {
		fmt.Println("Ошибка подключения к MongoDB:", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)

	var play game.Game
	collection := client.Database("metasquares").Collection("games")
	if err := collection.FindOne(ctx, bson.M{"game_key": *gameKey}).Decode(&play); err != nil {
		fmt.Println("Игра не найдена:", err)
		os.Exit(1)
	}

	if err := generatePDF(&play, *output); err != nil {
		fmt.Println("Ошибка при создании PDF:", err)
		os.Exit(1)
	}

	fmt.Println("PDF создан:", *output)
}

func generatePDF(play *game.Game, output string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Courier", "B", 14)
	pdf.Cell(0, 10, "MetaSquares game "+play.GameKey)
	pdf.Ln(12)

	pdf.SetFont("Courier", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("mode: %s   finished: %v   reason: %s", play.Mode, play.Finished(), play.EndReason))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("created: %s   moves: %d", play.CreatedAt.Format(time.RFC3339), len(play.Moves)))
	pdf.Ln(10)

	drawBoard(pdf, &play.Board, 20, pdf.GetY())
	pdf.SetY(pdf.GetY() + 8*cellMM + 12)

	for i := range play.Players {
		p := &play.Players[i]
		name := p.UserID
		if p.IsBot() {
			name = "bot (" + p.Profile + ")"
		}
		pdf.SetFont("Courier", "B", 11)
		pdf.Cell(0, 7, fmt.Sprintf("%s — %s: %d points", p.Color.String(), name, p.Score))
		pdf.Ln(7)
		pdf.SetFont("Courier", "", 9)
		for _, sq := range p.Squares {
			pdf.Cell(0, 5, fmt.Sprintf("  square %-14s area %d", sq.Key(), sq.Score))
			pdf.Ln(5)
		}
		pdf.Ln(3)
	}

	return pdf.OutputFileAndClose(output)
}

const cellMM = 9.0

func drawBoard(pdf *gofpdf.Fpdf, board *game.Board, x0, y0 float64) {
	for idx, c := range board {
		col, row := game.CellCoords(idx)
		x := x0 + float64(col)*cellMM
		y := y0 + float64(row)*cellMM
		switch c {
		case game.Black:
			pdf.SetFillColor(40, 40, 40)
			pdf.Rect(x, y, cellMM, cellMM, "FD")
		case game.White:
			pdf.SetFillColor(220, 220, 220)
			pdf.Rect(x, y, cellMM, cellMM, "FD")
		default:
			pdf.Rect(x, y, cellMM, cellMM, "D")
		}
	}
}
