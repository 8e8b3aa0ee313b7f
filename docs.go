package main

const documentation = `
===============================================================================
CBOE-Options
===============================================================================

Fetches delayed options-chain data for a list of symbols from the CBOE CDN,
saves each response as JSON and logs the process.

The symbol list is scraped from the CBOE symbol directory ("Underlying"
column) and cached in meta/symbols.txt; when the directory cannot be read the
cached list is used instead. Each symbol is requested as-is and, if that
fails, under its underscore alias (SPX, then _SPX). Responses are written to

    hub/options/{SYMBOL}/options-chain-{SYMBOL}-{ddmmyyyy}.json

keyed by the quote date (the day before the run). Runs whose quote date falls
on a weekend exit immediately. Progress is logged to

    log/cboe-options-{ddmmyyyy}.log

keyed by the run date. With reporting enabled a summary is emailed with the
run's log file attached.

Usage: optionsfetcher [options]
Options:
    -h, --help       Display this help message
    -d, --docs       Display documentation
        --parallel   Fetch symbols on a worker pool
        --report     Email a summary when the run completes

Configuration is read from flags, OPTIONS_* environment variables (a .env
file is honoured) and an optional config.yaml.

===============================================================================
`
