/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"strconv"

	"github.com/Seednode/codewords/games"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// joinURL is the address a scanned QR code leads to.
func joinURL(cfg *Config, r *http.Request, id games.RoomID) string {
	scheme := cfg.scheme()
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + cfg.prefix + "/?room=" + id.String()
}

// serveQR renders a PNG QR code that opens the join page of a live room.
func serveQR(s *server) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		n, err := strconv.Atoi(ps.ByName("roomid"))
		if err != nil {
			http.Error(w, "invalid room id", http.StatusBadRequest)
			return
		}

		room, err := s.reg.RoomByID(games.RoomID(n))
		if err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(joinURL(s.cfg, r, room.ID), qrcode.Medium, qrSize)
		if err != nil {
			s.log.Warn().Err(err).Stringer("room", room.ID).Msg("qr generation failed")
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(s.cfg, w)

		_, _ = w.Write(png)
	}
}
